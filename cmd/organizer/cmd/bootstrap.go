package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/cbr9/organizer/internal/cache"
	"github.com/cbr9/organizer/internal/connconfig"
	"github.com/cbr9/organizer/internal/engine"
	"github.com/cbr9/organizer/internal/iox"
	"github.com/cbr9/organizer/internal/journal"
	"github.com/cbr9/organizer/internal/locker"
	"github.com/cbr9/organizer/internal/obslog"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/ruleconfig"
	"github.com/cbr9/organizer/internal/storage"
	"github.com/cbr9/organizer/internal/template"
	"github.com/cbr9/organizer/internal/ui"
	"github.com/cbr9/organizer/internal/ui/plain"
	"github.com/cbr9/organizer/internal/ui/tui"
)

// bundle holds every long-lived service run/undo need, plus the builders
// a run compiles its rule set from.
type bundle struct {
	Services *engine.RunServices
	Builders map[string]*rule.RuleBuilder
	Compiler *rule.Compiler

	// Config backs the `config.KEY` template root, loaded from the
	// connections file's optional [config] table.
	Config map[string]string

	close func() error
}

// Close flushes and releases every service the bundle opened.
func (b *bundle) Close() error { return b.close() }

func defaultConfigPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "organizer", name), nil
}

// buildUI constructs the UI port the --tui flag selects between.
func buildUI(c *cli.Context) ui.Interface {
	if c.Bool("tui") {
		return tui.New()
	}
	return plain.NewStdio()
}

// resolveConnectionsPath returns --connections, or the default path under
// the OS config directory when it is unset.
func resolveConnectionsPath(c *cli.Context) (string, error) {
	if path := c.String("connections"); path != "" {
		return path, nil
	}
	return connconfig.DefaultPath()
}

// buildStorage registers the local filesystem under "file" plus every
// SFTP and S3 host named in connections.toml. When dryRun is set, every provider
// is wrapped in a Virtual overlay so no mutation reaches the real host.
func buildStorage(c *cli.Context, dryRun bool) (*storage.Registry, func() error, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve home directory: %w", err)
	}

	reg := storage.NewRegistry()
	registerHost(reg, "file", storage.NewLocal(home), dryRun)

	connPath, err := resolveConnectionsPath(c)
	if err != nil {
		return nil, nil, err
	}
	conns, err := connconfig.Load(connPath)
	if err != nil {
		return nil, nil, err
	}

	var sftpConns []*storage.SFTP
	for host, cfg := range conns {
		sftp, err := storage.DialSFTP(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to host %q: %w", host, err)
		}
		sftpConns = append(sftpConns, sftp)
		registerHost(reg, host, sftp, dryRun)
	}

	s3Conns, err := connconfig.LoadS3(connPath)
	if err != nil {
		return nil, nil, err
	}
	for host, cfg := range s3Conns {
		s3p, err := storage.DialS3(context.Background(), cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to host %q: %w", host, err)
		}
		registerHost(reg, host, s3p, dryRun)
	}

	closeFn := func() error {
		var firstErr error
		for _, s := range sftpConns {
			if err := s.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return reg, closeFn, nil
}

func registerHost(reg *storage.Registry, host string, p storage.Provider, dryRun bool) {
	if dryRun {
		p = storage.NewVirtual(p)
	}
	reg.Register(host, p)
}

// openJournal opens the journal database named by --journal, or the
// default path under the OS config directory, creating its parent
// directory as needed.
func openJournal(c *cli.Context) (*journal.Journal, error) {
	path := c.String("journal")
	if path == "" {
		var err error
		path, err = defaultConfigPath("journal.db")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	return journal.Open(path)
}

// bootstrapRun wires every service `run` needs: storage, the template
// registry with every built-in variable provider installed, the rule
// compiler, the rule set loaded from --rules-dir, the journal, the UI,
// the destination locker, and the in-process caches.
func bootstrapRun(c *cli.Context, dryRun bool) (*bundle, error) {
	// cleanup accumulates every release function opened so far, so any
	// failure partway through wiring still releases what came before it.
	var cleanup []func() error
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	reg, closeStorage, err := buildStorage(c, dryRun)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, closeStorage)

	templateReg := template.NewRegistry()
	engine.RegisterBuiltins(templateReg)
	tc := template.NewCompiler(templateReg)

	builders, err := ruleconfig.LoadDir(c.String("rules-dir"))
	if err != nil {
		closeAll()
		return nil, err
	}

	connPath, err := resolveConnectionsPath(c)
	if err != nil {
		closeAll()
		return nil, err
	}
	configValues, err := connconfig.LoadConfigValues(connPath)
	if err != nil {
		closeAll()
		return nil, err
	}

	var j *journal.Journal
	if dryRun {
		j, err = journal.Open(":memory:")
	} else {
		j, err = openJournal(c)
	}
	if err != nil {
		closeAll()
		return nil, err
	}
	cleanup = append(cleanup, iox.CloseFunc(j))

	iface := buildUI(c)
	cleanup = append(cleanup, iox.CloseFunc(iface))

	caches, err := cache.NewCaches()
	if err != nil {
		closeAll()
		return nil, err
	}

	logFile, err := openLogFile()
	if err != nil {
		closeAll()
		return nil, err
	}
	log := obslog.New("", "").WithOutput(logFile)

	services := engine.NewRunServices(reg, tc, j, iface, locker.New(), caches, log, 0)
	compiler := rule.NewCompiler(tc, rule.DefaultOptions())

	return &bundle{
		Services: services,
		Builders: builders,
		Compiler: compiler,
		Config:   configValues,
		close: func() error {
			iface.Close()
			storageErr := closeStorage()
			journalErr := j.Close()
			logErr := logFile.Close()
			if storageErr != nil {
				return storageErr
			}
			if journalErr != nil {
				return journalErr
			}
			return logErr
		},
	}, nil
}

// defaultLogPath is where `run` appends structured logs and `logs` reads
// them back from, under the OS config directory.
func defaultLogPath() (string, error) {
	return defaultConfigPath("organizer.log")
}

func openLogFile() (*os.File, error) {
	path, err := defaultLogPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// selectRules compiles name (when given), or every builder whose tags
// intersect tags (when given), or every builder otherwise. Results are
// sorted by name so repeated runs process rules in a stable order.
func selectRules(compiler *rule.Compiler, builders map[string]*rule.RuleBuilder, name string, tags []string) ([]*rule.Rule, error) {
	var names []string
	if name != "" {
		if _, ok := builders[name]; !ok {
			return nil, fmt.Errorf("rule %q not found in rules directory", name)
		}
		names = []string{name}
	} else {
		for n, b := range builders {
			if len(tags) == 0 || hasAnyTag(b.Tags, tags) {
				names = append(names, n)
			}
		}
		sort.Strings(names)
	}

	rules := make([]*rule.Rule, 0, len(names))
	for _, n := range names {
		r, err := compiler.Compile(n, builders)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func hasAnyTag(ruleTags, want []string) bool {
	for _, t := range want {
		for _, rt := range ruleTags {
			if rt == t {
				return true
			}
		}
	}
	return false
}
