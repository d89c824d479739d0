package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/patrickward/livepad/internal/config"
	"github.com/patrickward/livepad/internal/files"
	"github.com/patrickward/livepad/internal/logging"
)

const (
	appName    = "livepad"
	appVersion = "0.1.0"
)

type flagValues struct {
	configFile   string
	addr         string
	port         int
	dataDir      string
	logLevel     string
	logFile      string
	identity     string
	recipient    string
	generateKeys bool
	showVersion  bool
}

func newFlagSet(v *flagValues) *pflag.FlagSet {
	flags := pflag.NewFlagSet(appName, pflag.ExitOnError)
	flags.StringVarP(&v.configFile, "config", "c", "", "YAML config file (default: <data>/livepad.yaml)")
	flags.StringVarP(&v.addr, "addr", "a", "localhost", "Address to bind the server to")
	flags.IntVarP(&v.port, "port", "p", 8080, "Port to run the server on")
	flags.StringVarP(&v.dataDir, "data", "d", "", "Directory to store markdown files")
	flags.StringVarP(&v.logLevel, "log-level", "l", "info", "Log level: trace|debug|info|warn|error")
	flags.StringVar(&v.logFile, "log-file", "", "Log file (default: <data>/service/livepad.log)")
	flags.StringVarP(&v.identity, "identity", "i", "", "Use the identity file at the specified path for decryption")
	flags.StringVarP(&v.recipient, "recipient", "r", "", "Use the recipient file at the specified path for encryption")
	flags.BoolVarP(&v.generateKeys, "generate-keys", "g", false, "Generate a new key pair in <data>/keys and exit")
	flags.BoolVarP(&v.showVersion, "version", "v", false, "Show application version")

	flags.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "livepad - Markdown editor with a live, scroll-synced preview\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Examples:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  # Generate new keys:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s --generate-keys --data ~/notes\n\n", appName)
		_, _ = fmt.Fprintf(os.Stderr, "  # Serve a directory with encryption:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  %s -d ~/notes -i ~/notes/keys/key.txt -r ~/notes/keys/key.pub\n\n", appName)
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flags.PrintDefaults()
	}
	return flags
}

// loadConfig resolves the configuration in tiers: flags, then LIVEPAD_*
// environment variables, then the YAML file, then defaults.
func loadConfig(flags *pflag.FlagSet, v *flagValues, lookup func(string) (string, bool)) (*config.Config, error) {
	path := v.configFile
	if path == "" {
		path, _ = lookup(config.EnvPrefix + "CONFIG")
	}
	if path == "" {
		dataDir := v.dataDir
		if dataDir == "" {
			dataDir, _ = lookup(config.EnvPrefix + "DATA_DIR")
		}
		if dataDir == "" {
			dataDir = config.DefaultDataDir()
		}
		path = filepath.Join(dataDir, "livepad.yaml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if flags.Changed("addr") {
		cfg.Addr = v.addr
	}
	if flags.Changed("port") {
		cfg.Port = v.port
	}
	if flags.Changed("data") {
		cfg.DataDir = v.dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = v.logLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = v.logFile
	}
	if flags.Changed("identity") {
		cfg.Encryption.IdentityFile = v.identity
	}
	if flags.Changed("recipient") {
		cfg.Encryption.RecipientFile = v.recipient
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// defaultKeys returns keys/key.txt and keys/key.pub under the data
// directory when both exist.
func defaultKeys(keysDir string) (identityFile, recipientFile string) {
	identityFile = filepath.Join(keysDir, "key.txt")
	recipientFile = filepath.Join(keysDir, "key.pub")

	for _, f := range []string{identityFile, recipientFile} {
		if _, err := os.Stat(f); err != nil {
			log.Debug().Str("file", f).Msg("default key file not found")
			return "", ""
		}
	}
	return identityFile, recipientFile
}

func setupEncryption(cfg *config.Config) *files.EncryptionManager {
	crypt := files.NewEncryptionManager()

	identityFile, recipientFile := cfg.Encryption.IdentityFile, cfg.Encryption.RecipientFile
	if identityFile == "" {
		identityFile, recipientFile = defaultKeys(cfg.KeysDir())
	}
	if identityFile == "" {
		log.Info().Msg("encryption disabled")
		return crypt
	}

	if err := crypt.LoadEncryptionKeys(identityFile, recipientFile); err != nil {
		log.Warn().Err(err).Msg("error loading encryption keys, encryption disabled")
		return crypt
	}
	log.Info().Str("identity", identityFile).Msg("encryption enabled")
	return crypt
}

func main() {
	var v flagValues
	flags := newFlagSet(&v)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if v.showVersion {
		fmt.Printf("%s version %s\n", appName, appVersion)
		return
	}

	cfg, err := loadConfig(flags, &v, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}

	if v.generateKeys {
		publicPath, privatePath, err := files.GenerateKeyPair(cfg.KeysDir())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating key pair: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated new encryption identity:\n")
		fmt.Printf("  Public key file: %s\n", publicPath)
		fmt.Printf("  Private key file: %s\n", privatePath)
		fmt.Printf("\nTo use these keys:\n")
		fmt.Printf("  %s --identity %s --recipient %s\n", appName, privatePath, publicPath)
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	closeLogs, err := logging.Setup(cfg.Logging())
	if err != nil {
		return fmt.Errorf("error setting up logging: %w", err)
	}
	defer closeLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := NewServer(ctx, cfg, WithEncryptionManager(setupEncryption(cfg)))
	if err != nil {
		log.Error().Err(err).Msg("error initializing server")
		return err
	}

	return server.Start()
}
