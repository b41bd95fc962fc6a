package config

import "github.com/rs/zerolog"

type Config struct {
	Libraries []ConfigLibrary `json:"libraries,omitempty"`
}

// ConfigLibrary is one library-to-mirror mapping of the daemon config.
type ConfigLibrary struct {
	LibraryDir  string       `json:"library_dir"`
	MirrorDir   string       `json:"mirror_dir"`
	Enable      bool         `json:"enable"`
	Schedule    string       `json:"cron"`
	ExpiryDays  int          `json:"expiry_days,omitempty"`
	Workers     int          `json:"workers,omitempty"`
	MaxFileSize SizeArgument `json:"max_file_size,omitempty"`
	// Pass toggles, all passes run unless disabled.
	NoCollections bool `json:"no_collections,omitempty"`
	NoCopy        bool `json:"no_copy,omitempty"`
	NoTree        bool `json:"no_tree,omitempty"`
}

func (l ConfigLibrary) MarshalZerologObject(e *zerolog.Event) {
	e.Str("library_dir", l.LibraryDir)
	e.Str("mirror_dir", l.MirrorDir)
	e.Bool("enable", l.Enable)
	e.Str("schedule", l.Schedule)

	if l.ExpiryDays > 0 {
		e.Int("expiry_days", l.ExpiryDays)
	}
	if l.Workers > 0 {
		e.Int("workers", l.Workers)
	}
	if l.MaxFileSize.Size > 0 {
		e.Int64("max_file_size", l.MaxFileSize.Size)
	}
}
