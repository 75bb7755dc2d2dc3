package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where muhandis stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the url of your muhandis instance.
	InstanceURL string

	// Secret signs session tokens issued by the auth endpoint.
	Secret string
	// AccessKeyHash is the bcrypt hash of the shared access key accepted at sign-in.
	// Empty disables the sign-in endpoint.
	AccessKeyHash string

	// AI configuration
	AIEnabled     bool    // MUHANDIS_AI_ENABLED
	AIProvider    string  // MUHANDIS_AI_PROVIDER (default: openai)
	AIAPIKey      string  // MUHANDIS_AI_API_KEY
	AIBaseURL     string  // MUHANDIS_AI_BASE_URL
	AIModel       string  // MUHANDIS_AI_MODEL (default: gpt-4o-mini)
	AITemperature float64 // MUHANDIS_AI_TEMPERATURE (default: 0.7)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and a provider is actually reachable.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIAPIKey != "" || p.AIBaseURL != "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "muhandis")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					return errors.Wrapf(err, "failed to create data directory %s", p.Data)
				}
			}
		} else {
			p.Data = "/var/opt/muhandis"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("muhandis_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	if p.AIProvider == "" {
		p.AIProvider = "openai"
	}
	if p.AIModel == "" {
		p.AIModel = "gpt-4o-mini"
	}
	if p.AITemperature <= 0 || p.AITemperature > 1 {
		p.AITemperature = 0.7
	}

	return nil
}
