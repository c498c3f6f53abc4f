package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/xerrors"
)

// SFTP is a Provider backed by a single SSH/SFTP connection, used for the
// "remote backup box" style location a rule's connections file names.
type SFTP struct {
	ssh    *ssh.Client
	client *sftp.Client
	home   string
}

// SFTPConfig names the remote endpoint and credentials, as decoded from a
// connections.toml entry.
type SFTPConfig struct {
	Addr     string
	User     string
	Password string
	Home     string
}

// DialSFTP opens the SSH connection and the SFTP subsystem on top of it.
func DialSFTP(cfg SFTPConfig) (*SFTP, error) {
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // connections.toml is the trust boundary
	}
	conn, err := ssh.Dial("tcp", cfg.Addr, clientCfg)
	if err != nil {
		return nil, xerrors.Storagepathf(cfg.Addr, "sftp dial failed", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, xerrors.Storagepathf(cfg.Addr, "sftp handshake failed", err)
	}
	return &SFTP{ssh: conn, client: client, home: cfg.Home}, nil
}

func (s *SFTP) Close() error {
	s.client.Close()
	return s.ssh.Close()
}

func (s *SFTP) Prefix() string        { return "sftp" }
func (s *SFTP) Home() (string, error) { return s.home, nil }

func (s *SFTP) Metadata(_ context.Context, p string) (Metadata, error) {
	info, err := s.client.Stat(p)
	if err != nil {
		return Metadata{}, xerrors.Storagepathf(p, "sftp stat failed", err)
	}
	return Metadata{Size: info.Size(), IsDir: info.IsDir(), MTime: info.ModTime()}, nil
}

func (s *SFTP) ReadDir(_ context.Context, p string) ([]string, error) {
	entries, err := s.client.ReadDir(p)
	if err != nil {
		return nil, xerrors.Storagepathf(p, "sftp readdir failed", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *SFTP) Read(_ context.Context, p string) ([]byte, error) {
	f, err := s.client.Open(p)
	if err != nil {
		return nil, xerrors.Storagepathf(p, "sftp open failed", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *SFTP) Write(_ context.Context, p string, data []byte) error {
	if err := s.client.MkdirAll(path.Dir(p)); err != nil {
		return xerrors.Storagepathf(p, "sftp mkdir parent failed", err)
	}
	f, err := s.client.Create(p)
	if err != nil {
		return xerrors.Storagepathf(p, "sftp create failed", err)
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// Discover is not supported for SFTP locations in this release: every
// location a rule uses must resolve to a local or virtual host. Remote
// hosts are destinations only, reached via Move/Copy's upload path.
func (s *SFTP) Discover(context.Context, string, rule.Location) ([]*resource.Resource, error) {
	return nil, xerrors.OutOfScopef("sftp provider does not support discovery; use it as a destination host")
}

func (s *SFTP) Mkdir(_ context.Context, p string) error {
	if err := s.client.MkdirAll(p); err != nil {
		return xerrors.Storagepathf(p, "sftp mkdir failed", err)
	}
	return nil
}

func (s *SFTP) Move(_ context.Context, from, to string) error {
	if err := s.client.MkdirAll(path.Dir(to)); err != nil {
		return xerrors.Storagepathf(to, "sftp move: mkdir parent failed", err)
	}
	if err := s.client.Rename(from, to); err != nil {
		return xerrors.Storagepathf(from, "sftp move failed", err)
	}
	return nil
}

func (s *SFTP) Copy(ctx context.Context, from, to string) error {
	data, err := s.Read(ctx, from)
	if err != nil {
		return err
	}
	return s.Write(ctx, to, data)
}

func (s *SFTP) Delete(_ context.Context, p string) error {
	if err := s.client.Remove(p); err != nil {
		return xerrors.Storagepathf(p, "sftp delete failed", err)
	}
	return nil
}

// Download pulls bytes from the remote host to the local caller.
func (s *SFTP) Download(ctx context.Context, from string) ([]byte, error) {
	return s.Read(ctx, from)
}

// Upload pushes local bytes up to the remote host.
func (s *SFTP) Upload(ctx context.Context, local []byte, to string) error {
	return s.Write(ctx, to, local)
}

// Hardlink has no SFTP equivalent across hosts; falls back to a full copy.
func (s *SFTP) Hardlink(ctx context.Context, from, to string) error {
	return s.Copy(ctx, from, to)
}

func (s *SFTP) Symlink(_ context.Context, from, to string) error {
	if err := s.client.Symlink(from, to); err != nil {
		return xerrors.Storagepathf(from, "sftp symlink failed", err)
	}
	return nil
}

func (s *SFTP) Exists(_ context.Context, p string) (bool, error) {
	_, err := s.client.Lstat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, xerrors.Storagepathf(p, "sftp exists check failed", err)
}
