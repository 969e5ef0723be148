package domain

const (
	KeyAppKey       = "app_key"
	KeyAppSecret    = "app_secret"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Settings is the persisted credential record. Keys are either present with a
// non-empty value or absent.
type Settings map[string]string

func (s Settings) Get(key string) string {
	return s[key]
}

func (s Settings) Has(key string) bool {
	return s[key] != ""
}

// Set stores value under key. An empty value removes the key.
func (s Settings) Set(key, value string) {
	if value == "" {
		delete(s, key)
		return
	}
	s[key] = value
}

func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	for k, v := range s {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

type SettingsRepository interface {
	Load() (Settings, error)

	Save(settings Settings) error

	Delete() error

	Path() string
}
