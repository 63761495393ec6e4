package config

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Options is the full CLI surface. One schema covers both authentication
// modes; Validate enforces the mutually exclusive groups after parsing.
type Options struct {
	Username string `short:"u" long:"username" description:"Username for the directory bind"`
	Password string `short:"p" long:"password" description:"Password for the directory bind"`
	Hash     string `short:"H" long:"hash" description:"NTLM hash for the directory bind"`

	Domain           string `short:"d" long:"domain" description:"Domain name, e.g. corp.local"`
	DomainController string `long:"dc" description:"Domain controller address"`
	Port             int    `long:"port" default:"389" description:"LDAP port on the domain controller"`

	Userfile string `long:"userfile" description:"Credential file, one identifier:secret per line (HASH: prefix for NTLM hashes)"`
	Rotate   bool   `long:"rotate" description:"Rotate through the userfile, one credential per query"`

	Outfile     string `short:"o" long:"outfile" default:"report" description:"Report name without extension"`
	DatabaseURL string `long:"db-url" description:"Optional postgres DSN to persist findings"`
	EnvFile     string `long:"env-file" description:"Optional .env file supplying defaults"`
}

// ValidationError reports contradictory or incomplete options. It is fatal
// and always raised before any directory contact.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// Parse reads the command line, applies env-file defaults and validates
// the result.
func Parse(args []string) (*Options, error) {
	var opts Options
	parser := flags.NewNamedParser("adaudit", flags.Default)
	if _, err := parser.AddGroup("Application Options", "", &opts); err != nil {
		return nil, err
	}

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := opts.applyEnvFile(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &opts, nil
}

// applyEnvFile fills options left empty on the command line from an env
// file, the same settings.env mechanism used for unattended runs.
func (o *Options) applyEnvFile() error {
	if o.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(o.EnvFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", o.EnvFile, err)
	}

	fill := func(target *string, key string) {
		if *target == "" {
			*target = os.Getenv(key)
		}
	}
	fill(&o.Username, "ADAUDIT_USERNAME")
	fill(&o.Password, "ADAUDIT_PASSWORD")
	fill(&o.Hash, "ADAUDIT_HASH")
	fill(&o.Domain, "ADAUDIT_DOMAIN")
	fill(&o.DomainController, "ADAUDIT_DC")
	fill(&o.DatabaseURL, "ADAUDIT_DB_URL")
	return nil
}

// Validate runs the single post-parse validation pass. Rotation requires a
// userfile and vice versa; single-credential mode requires a username and
// exactly one of password or hash.
func (o *Options) Validate() error {
	if o.Domain == "" {
		return &ValidationError{Reason: "a domain is required (--domain)"}
	}
	if o.DomainController == "" {
		return &ValidationError{Reason: "a domain controller is required (--dc)"}
	}

	if o.Rotate && o.Userfile == "" {
		return &ValidationError{Reason: "--rotate can only be used with --userfile"}
	}
	if o.Userfile != "" && !o.Rotate {
		return &ValidationError{Reason: "--userfile must be used with --rotate"}
	}

	if o.Userfile != "" {
		if o.Username != "" || o.Password != "" || o.Hash != "" {
			return &ValidationError{Reason: "--userfile is exclusive with --username/--password/--hash"}
		}
		return nil
	}

	if o.Username == "" {
		return &ValidationError{Reason: "a username is required without --userfile"}
	}
	if o.Password == "" && o.Hash == "" {
		return &ValidationError{Reason: "either a password or a hash is required"}
	}
	if o.Password != "" && o.Hash != "" {
		return &ValidationError{Reason: "--password and --hash are mutually exclusive"}
	}
	return nil
}

// Endpoint composes the domain controller address contacted for every
// query of the run.
func (o *Options) Endpoint() string {
	return fmt.Sprintf("%s:%d", o.DomainController, o.Port)
}
