// Package connconfig loads connections.toml, mapping host names to the
// storage-provider configuration a rule's locations and destinations
// reference. Absent a connections file, the engine runs with only the
// built-in `file` host.
package connconfig

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cbr9/organizer/internal/envexpand"
	"github.com/cbr9/organizer/internal/storage"
	"github.com/cbr9/organizer/internal/xerrors"
)

// hostEntry is one [hosts.NAME] table. Its Type discriminant selects
// which of the SFTP or S3 fields apply; the other group is ignored.
type hostEntry struct {
	Type string `toml:"type"`

	// SFTP fields.
	Addr     string `toml:"addr"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Home     string `toml:"home"`

	// S3 fields.
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// document is the root shape of connections.toml.
type document struct {
	Hosts  map[string]hostEntry `toml:"hosts"`
	Config map[string]string    `toml:"config"`
}

// Load reads and decodes a connections.toml file at path, expanding
// ${VAR}/${VAR:-default} references in raw field values (so a password or
// key can live in the environment rather than on disk) before decoding.
// A missing file is not an error: the caller falls back to file-only.
func Load(path string) (map[string]storage.SFTPConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]storage.SFTPConfig{}, nil
		}
		return nil, xerrors.Storagepathf(path, "read connections file failed", err)
	}

	expanded := envexpand.Expand(string(data))

	var doc document
	if _, err := toml.Decode(expanded, &doc); err != nil {
		return nil, xerrors.Configf("invalid TOML in "+path, err)
	}

	out := make(map[string]storage.SFTPConfig, len(doc.Hosts))
	for name, entry := range doc.Hosts {
		switch entry.Type {
		case "", "sftp":
			out[name] = storage.SFTPConfig{
				Addr:     entry.Addr,
				User:     entry.User,
				Password: entry.Password,
				Home:     entry.Home,
			}
		case "s3":
			// handled by LoadS3
		default:
			return nil, xerrors.Configf("connections: host "+name+": unknown type "+entry.Type, nil)
		}
	}
	return out, nil
}

// LoadS3 reads connections.toml the same way Load does, returning every
// host entry typed "s3" as a storage.S3Config.
func LoadS3(path string) (map[string]storage.S3Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]storage.S3Config{}, nil
		}
		return nil, xerrors.Storagepathf(path, "read connections file failed", err)
	}

	expanded := envexpand.Expand(string(data))

	var doc document
	if _, err := toml.Decode(expanded, &doc); err != nil {
		return nil, xerrors.Configf("invalid TOML in "+path, err)
	}

	out := make(map[string]storage.S3Config)
	for name, entry := range doc.Hosts {
		if entry.Type != "s3" {
			continue
		}
		out[name] = storage.S3Config{
			Bucket:       entry.Bucket,
			Region:       entry.Region,
			Endpoint:     entry.Endpoint,
			UsePathStyle: entry.UsePathStyle,
		}
	}
	return out, nil
}

// LoadConfigValues reads the optional [config] table from connections.toml,
// backing the `config.KEY` template root. A missing file yields an empty
// map, same as Load.
func LoadConfigValues(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, xerrors.Storagepathf(path, "read connections file failed", err)
	}

	expanded := envexpand.Expand(string(data))

	var doc document
	if _, err := toml.Decode(expanded, &doc); err != nil {
		return nil, xerrors.Configf("invalid TOML in "+path, err)
	}
	if doc.Config == nil {
		return map[string]string{}, nil
	}
	return doc.Config, nil
}

// DefaultPath returns connections.toml under the OS config dir
// (<config dir>/organizer/connections.toml); no project-local file is
// consulted.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", xerrors.Configf("resolve user config dir failed", err)
	}
	return dir + "/organizer/connections.toml", nil
}
