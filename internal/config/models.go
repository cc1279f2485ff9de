package config

import "time"

// Registry represents the entire user configuration file.
// It holds application preferences, server defaults and metadata about
// carrier images that have been encoded. Message text is never stored.
type Registry struct {
	Version     int                     `yaml:"version"`
	Preferences *Preferences            `yaml:"preferences,omitempty"`
	Server      *ServerPrefs            `yaml:"server,omitempty"`
	Images      map[string]*ImageRecord `yaml:"images,omitempty"` // Keyed by absolute image path
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	LogLevel         string `yaml:"log_level,omitempty"` // "", "debug", "info", "warn", "error"
	OutputSuffix     string `yaml:"output_suffix"`       // Inserted before ".ppm" for default encode output
	ConfirmOverwrite bool   `yaml:"confirm_overwrite"`   // Ask before replacing an existing output file
	DiscoverTimeout  int    `yaml:"discover_timeout"`    // mDNS scan timeout in seconds
}

// ServerPrefs holds defaults for `ppmsteg serve`. Flags override these.
type ServerPrefs struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	CertPath       string `yaml:"cert_path,omitempty"`
	KeyPath        string `yaml:"key_path,omitempty"`
	SelfSigned     bool   `yaml:"self_signed"`
	Advertise      bool   `yaml:"advertise"`               // Announce via mDNS
	InstanceName   string `yaml:"instance_name,omitempty"` // mDNS instance name (default: hostname)
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

// ImageRecord is what ppmsteg remembers about a carrier image.
type ImageRecord struct {
	Width             uint32    `yaml:"width"`
	Height            uint32    `yaml:"height"`
	MaxColorValue     uint32    `yaml:"max_color_value"`
	Capacity          int       `yaml:"capacity"`                      // Longest message the image can hold
	LastMessageLength int       `yaml:"last_message_length,omitempty"` // Length only, never content
	LastEncoded       time.Time `yaml:"last_encoded,omitempty"`
	LastOutput        string    `yaml:"last_output,omitempty"`
}

// Defaults
const (
	DefaultOutputSuffix    = ".steg"
	DefaultDiscoverTimeout = 5
	DefaultServerPort      = 8765
	DefaultMaxUploadBytes  = 64 << 20
)

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Preferences: defaultPreferences(),
		Server:      defaultServerPrefs(),
		Images:      make(map[string]*ImageRecord),
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		OutputSuffix:     DefaultOutputSuffix,
		ConfirmOverwrite: true,
		DiscoverTimeout:  DefaultDiscoverTimeout,
	}
}

func defaultServerPrefs() *ServerPrefs {
	return &ServerPrefs{
		Host:           "",
		Port:           DefaultServerPort,
		Advertise:      true,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// GetImage retrieves the record for an image path.
// Returns nil if the image is not in the registry.
func (r *Registry) GetImage(path string) *ImageRecord {
	return r.Images[path]
}

// EnsureImage ensures an image entry exists in the registry and returns it.
func (r *Registry) EnsureImage(path string) *ImageRecord {
	if r.Images == nil {
		r.Images = make(map[string]*ImageRecord)
	}

	if rec, exists := r.Images[path]; exists {
		return rec
	}

	rec := &ImageRecord{}
	r.Images[path] = rec
	return rec
}

// RecordImage stores the header facts and capacity of an image.
func (r *Registry) RecordImage(path string, width, height, maxColorValue uint32, capacity int) {
	rec := r.EnsureImage(path)
	rec.Width = width
	rec.Height = height
	rec.MaxColorValue = maxColorValue
	rec.Capacity = capacity
}

// RecordEncode notes that a message of messageLen bytes was embedded in the
// image at path and written to output.
func (r *Registry) RecordEncode(path, output string, messageLen int) {
	rec := r.EnsureImage(path)
	rec.LastMessageLength = messageLen
	rec.LastEncoded = time.Now()
	rec.LastOutput = output
}

// ForgetImage removes an image from the registry.
func (r *Registry) ForgetImage(path string) {
	delete(r.Images, path)
}

// normalize fills in anything a partial config file left out.
func (r *Registry) normalize() {
	if r.Images == nil {
		r.Images = make(map[string]*ImageRecord)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
	}
	if r.Preferences.OutputSuffix == "" {
		r.Preferences.OutputSuffix = DefaultOutputSuffix
	}
	if r.Preferences.DiscoverTimeout <= 0 {
		r.Preferences.DiscoverTimeout = DefaultDiscoverTimeout
	}
	if r.Server == nil {
		r.Server = defaultServerPrefs()
	}
	if r.Server.Port == 0 {
		r.Server.Port = DefaultServerPort
	}
	if r.Server.MaxUploadBytes <= 0 {
		r.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
}
