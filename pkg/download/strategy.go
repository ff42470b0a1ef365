package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	cerrors "github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/logging"
	"github.com/arthur-debert/cellar/pkg/registry"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultStrategy is the name of the plain fetch-verify-extract strategy.
const DefaultStrategy = "archive"

// Request describes one acquisition.
type Request struct {
	Formula string
	Source  types.SourceSpec
	// Version is the resolved formula version, used to name transformed
	// artifacts.
	Version string
	// WorkDir is owned by this acquisition. It is created when missing.
	WorkDir string
}

// Strategy acquires a formula's source tree.
type Strategy interface {
	Fetch(ctx context.Context, req Request) (*types.DownloadResult, error)
}

// NewWorkDir returns a fresh, unique work directory path under root for
// one acquisition of formula. The directory is not created.
func NewWorkDir(root, formula string) string {
	return filepath.Join(root, "build", fmt.Sprintf("%s-%s", formula, uuid.NewString()))
}

// FetchVerified downloads rawURL into dir and verifies it against checksum
// before returning its path. The file is removed when verification fails.
func FetchVerified(ctx context.Context, f Fetcher, rawURL, checksum, dir string) (string, Checksum, error) {
	dest, err := FetchFile(ctx, f, rawURL, dir)
	if err != nil {
		return "", Checksum{}, err
	}
	sum, err := Verify(dest, checksum)
	if err != nil {
		_ = os.Remove(dest)
		return "", Checksum{}, err
	}
	return dest, sum, nil
}

// FetchFile downloads rawURL into dir under its own base name, without
// verifying it.
func FetchFile(ctx context.Context, f Fetcher, rawURL, dir string) (string, error) {
	dest := filepath.Join(dir, archiveName(rawURL))
	if _, err := f.Fetch(ctx, rawURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// ArchiveStrategy fetches an archive, verifies it and extracts it.
type ArchiveStrategy struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewArchiveStrategy creates the default strategy.
func NewArchiveStrategy(f Fetcher, logger *zerolog.Logger) *ArchiveStrategy {
	return &ArchiveStrategy{fetcher: f, logger: logging.OrDefault(logger, "download")}
}

// Fetch implements Strategy.
func (s *ArchiveStrategy) Fetch(ctx context.Context, req Request) (*types.DownloadResult, error) {
	archive, sum, err := prepare(ctx, s.fetcher, req)
	if err != nil {
		return nil, err
	}

	src, err := Extract(archive, filepath.Join(req.WorkDir, "src"))
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("formula", req.Formula).Str("source_dir", src).Msg("Source extracted")
	return &types.DownloadResult{
		SourceDir:   src,
		ArchivePath: archive,
		Checksum:    sum.String(),
		WorkDir:     req.WorkDir,
		Strategy:    DefaultStrategy,
	}, nil
}

// Transform converts a verified download into an archive Extract
// understands, returning the new archive's path.
type Transform func(ctx context.Context, archive string, req Request) (string, error)

// TransformStrategy is ArchiveStrategy with a conversion step between
// verification and extraction.
type TransformStrategy struct {
	name      string
	fetcher   Fetcher
	transform Transform
	logger    zerolog.Logger
}

// NewTransformStrategy creates a strategy that applies t to every verified
// download before extracting it.
func NewTransformStrategy(name string, f Fetcher, t Transform, logger *zerolog.Logger) *TransformStrategy {
	return &TransformStrategy{
		name:      name,
		fetcher:   f,
		transform: t,
		logger:    logging.OrDefault(logger, "download"),
	}
}

// Fetch implements Strategy.
func (s *TransformStrategy) Fetch(ctx context.Context, req Request) (*types.DownloadResult, error) {
	archive, sum, err := prepare(ctx, s.fetcher, req)
	if err != nil {
		return nil, err
	}

	converted, err := s.transform(ctx, archive, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("formula", req.Formula).
		Str("strategy", s.name).
		Str("archive", converted).
		Msg("Download transformed")

	src, err := Extract(converted, filepath.Join(req.WorkDir, "src"))
	if err != nil {
		return nil, err
	}

	return &types.DownloadResult{
		SourceDir:   src,
		ArchivePath: archive,
		Checksum:    sum.String(),
		WorkDir:     req.WorkDir,
		Strategy:    s.name,
	}, nil
}

func prepare(ctx context.Context, f Fetcher, req Request) (string, Checksum, error) {
	if req.WorkDir == "" {
		return "", Checksum{}, cerrors.New(cerrors.ErrInternal, "download request has no work directory")
	}
	dir := filepath.Join(req.WorkDir, "download")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", Checksum{}, cerrors.Wrapf(err, cerrors.ErrFilesystem, "creating %s", dir)
	}
	return FetchVerified(ctx, f, req.Source.URL, req.Source.Checksum, dir)
}

// RPMTransform unpacks the source tarball embedded in a source RPM. It
// needs rpm2cpio and cpio on the host.
func RPMTransform(r runner.Runner) Transform {
	return func(ctx context.Context, archive string, req Request) (string, error) {
		dir := filepath.Join(req.WorkDir, "rpm")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", cerrors.Wrapf(err, cerrors.ErrFilesystem, "creating %s", dir)
		}

		version := req.Version
		if version == "" {
			version = req.Source.Version
		}
		tarball := fmt.Sprintf("%s-%s.tar.gz", req.Formula, version)

		_, err := r.Run(ctx, runner.Command{
			Name: "sh",
			Args: []string{"-c", `rpm2cpio "$1" | cpio -id "$2"`, "sh", archive, tarball},
			Dir:  dir,
		})
		if err != nil {
			cerr := cerrors.Wrapf(err, cerrors.ErrUnsupportedArchive, "unpacking source rpm %s", filepath.Base(archive))
			if rerr, ok := err.(*runner.Error); ok {
				cerr.WithDetail(cerrors.DetailOutput, rerr.Output)
			}
			return "", cerr
		}

		out := filepath.Join(dir, tarball)
		if _, err := os.Stat(out); err != nil {
			return "", cerrors.Newf(cerrors.ErrUnsupportedArchive, "source rpm %s does not contain %s", filepath.Base(archive), tarball)
		}
		return out, nil
	}
}

// Strategies maps strategy names to implementations.
type Strategies struct {
	reg registry.Registry[Strategy]
}

// NewStrategies creates a set whose default strategy is def.
func NewStrategies(def Strategy) *Strategies {
	s := &Strategies{reg: registry.New[Strategy]("download strategy")}
	registry.MustRegister(s.reg, DefaultStrategy, def)
	return s
}

// Register adds a named strategy.
func (s *Strategies) Register(name string, strategy Strategy) error {
	return s.reg.Register(name, strategy)
}

// For returns the strategy a source spec asks for, the default one when it
// names none. An unknown name is an UnsupportedArchiveError since nothing
// can unpack the source.
func (s *Strategies) For(spec types.SourceSpec) (Strategy, error) {
	name := spec.Strategy
	if name == "" {
		name = DefaultStrategy
	}
	strategy, err := s.reg.Get(name)
	if err != nil {
		return nil, cerrors.Wrapf(err, cerrors.ErrUnsupportedArchive, "no download strategy named %q", name).
			WithDetail("strategy", name)
	}
	return strategy, nil
}

// Names lists the registered strategy names.
func (s *Strategies) Names() []string {
	return s.reg.List()
}

// Defaults builds the standard strategy set: "archive" and "rpm".
func Defaults(f Fetcher, r runner.Runner, logger *zerolog.Logger) *Strategies {
	s := NewStrategies(NewArchiveStrategy(f, logger))
	registry.MustRegister(s.reg, "rpm", Strategy(NewTransformStrategy("rpm", f, RPMTransform(r), logger)))
	return s
}

// Discard removes everything an acquisition left on disk.
func Discard(res *types.DownloadResult) error {
	if res == nil || res.WorkDir == "" {
		return nil
	}
	return os.RemoveAll(res.WorkDir)
}
