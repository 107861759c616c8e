package constants

import "time"

var StoreConfig = struct {
	APIBaseURL    string
	RawBaseURL    string
	Branch        string
	DataPath      string
	PhotosPath    string
	LogoBaseName  string
	Timeout       time.Duration
	MaxErrorBody  int64
	CommitMessage string
}{
	APIBaseURL:    "https://api.github.com",
	RawBaseURL:    "https://raw.githubusercontent.com",
	Branch:        "main",
	DataPath:      "data.json",
	PhotosPath:    "photos/",
	LogoBaseName:  "logo",
	Timeout:       10 * time.Second,
	MaxErrorBody:  4 << 10,
	CommitMessage: "Update data",
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 3,                // 3 consecutive transport failures open the circuit
	ResetTimeout:     30 * time.Second, // fail fast for 30s before probing again
}

var CacheTTL = struct {
	PublicDocument time.Duration
}{
	PublicDocument: 60 * time.Second,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	DialTimeout  time.Duration
	IOTimeout    time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	DialTimeout:  5 * time.Second,
	IOTimeout:    3 * time.Second,
	KeyPrefix:    "parish:",
}

var TimeLayouts = struct {
	Timestamp  string
	BackupName string
}{
	Timestamp:  "2006-01-02 15:04",
	BackupName: "20060102_150405",
}

var SessionConfig = struct {
	CookieName string
	TTL        time.Duration
	Issuer     string
}{
	CookieName: "parish_admin",
	TTL:        2 * time.Hour,
	Issuer:     "parish-directory",
}

var HTTPConfig = struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int
}{
	Addr:            ":8080",
	RequestTimeout:  15 * time.Second,
	ShutdownTimeout: 10 * time.Second,
	MaxUploadBytes:  8 << 20,
}

var ImportConfig = struct {
	LegacyDataFile  string
	LegacyPhotosDir string
	UploadWorkers   int
}{
	LegacyDataFile:  "parish_members.json",
	LegacyPhotosDir: "member_photos",
	UploadWorkers:   4,
}

var StringLimits = struct {
	AnnouncementPreview int
}{
	AnnouncementPreview: 50,
}
