package download

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	cerrors "github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/runner"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func sha256Of(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

func serve(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher() *HTTPFetcher {
	return NewHTTPFetcher(FetcherOptions{Retries: 0})
}

func TestArchiveStrategy(t *testing.T) {
	archive := tarball(t, map[string]string{
		"foo-1.0/configure": "#!/bin/sh\n",
		"foo-1.0/main.c":    "int main(void){return 0;}\n",
	})
	srv := serve(t, map[string][]byte{"/foo-1.0.tar.gz": archive})

	s := NewArchiveStrategy(newFetcher(), nil)
	req := Request{
		Formula: "foo",
		Source:  types.SourceSpec{URL: srv.URL + "/foo-1.0.tar.gz", Checksum: sha256Of(archive)},
		WorkDir: t.TempDir(),
	}

	res, err := s.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(req.WorkDir, "src", "foo-1.0"), res.SourceDir)
	assert.Equal(t, sha256Of(archive), res.Checksum)
	assert.Equal(t, DefaultStrategy, res.Strategy)
	assert.FileExists(t, filepath.Join(res.SourceDir, "main.c"))

	require.NoError(t, Discard(res))
	assert.NoDirExists(t, req.WorkDir)
}

func TestArchiveStrategyFlatArchive(t *testing.T) {
	archive := tarball(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	path := filepath.Join(t.TempDir(), "flat.tar.gz")
	require.NoError(t, os.WriteFile(path, archive, 0644))

	res, err := NewArchiveStrategy(newFetcher(), nil).Fetch(context.Background(), Request{
		Formula: "flat",
		Source:  types.SourceSpec{URL: "file://" + path, Checksum: sha256Of(archive)},
		WorkDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(res.SourceDir, "a.txt"))
}

func TestArchiveStrategyChecksumMismatch(t *testing.T) {
	archive := tarball(t, map[string]string{"x-1/README": "x"})
	srv := serve(t, map[string][]byte{"/x-1.tar.gz": archive})
	work := t.TempDir()

	_, err := NewArchiveStrategy(newFetcher(), nil).Fetch(context.Background(), Request{
		Formula: "x",
		Source:  types.SourceSpec{URL: srv.URL + "/x-1.tar.gz", Checksum: sha256Of([]byte("something else"))},
		WorkDir: work,
	})
	require.Error(t, err)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrIntegrity))
	// Nothing is extracted from an unverified download.
	assert.NoDirExists(t, filepath.Join(work, "src"))
	assert.NoFileExists(t, filepath.Join(work, "download", "x-1.tar.gz"))
}

func TestArchiveStrategyFetchFailure(t *testing.T) {
	srv := serve(t, nil)
	_, err := NewArchiveStrategy(newFetcher(), nil).Fetch(context.Background(), Request{
		Formula: "missing",
		Source:  types.SourceSpec{URL: srv.URL + "/missing.tar.gz", Checksum: sha256Of(nil)},
		WorkDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrFetch))
	assert.False(t, cerrors.IsTimeout(err))
}

func TestArchiveStrategyUnsupportedArchive(t *testing.T) {
	body := []byte("not an archive")
	srv := serve(t, map[string][]byte{"/thing.pkg": body})
	_, err := NewArchiveStrategy(newFetcher(), nil).Fetch(context.Background(), Request{
		Formula: "thing",
		Source:  types.SourceSpec{URL: srv.URL + "/thing.pkg", Checksum: sha256Of(body)},
		WorkDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrUnsupportedArchive))
}

func TestTransformStrategy(t *testing.T) {
	archive := tarball(t, map[string]string{"yeti-0.9/build.xml": "<project/>"})
	srv := serve(t, map[string][]byte{"/yeti.bundle": archive})

	// The transform renames the opaque download to something Extract knows.
	rename := func(ctx context.Context, path string, req Request) (string, error) {
		out := filepath.Join(req.WorkDir, req.Formula+".tar.gz")
		return out, os.Rename(path, out)
	}

	s := NewTransformStrategy("bundle", newFetcher(), rename, nil)
	res, err := s.Fetch(context.Background(), Request{
		Formula: "yeti",
		Source:  types.SourceSpec{URL: srv.URL + "/yeti.bundle", Checksum: sha256Of(archive)},
		WorkDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "bundle", res.Strategy)
	assert.Equal(t, sha256Of(archive), res.Checksum)
	assert.FileExists(t, filepath.Join(res.SourceDir, "build.xml"))
}

type scriptedRunner struct {
	commands []runner.Command
	do       func(c runner.Command) error
}

func (r *scriptedRunner) Run(_ context.Context, c runner.Command) (runner.Result, error) {
	r.commands = append(r.commands, c)
	if r.do != nil {
		if err := r.do(c); err != nil {
			return runner.Result{ExitCode: 1}, &runner.Error{Cmdline: c.Cmdline(), ExitCode: 1, Output: "cpio: boom", Err: err}
		}
	}
	return runner.Result{}, nil
}

func TestRPMTransform(t *testing.T) {
	inner := tarball(t, map[string]string{"rpm-5.4.14/configure": "#!/bin/sh\n"})
	rpm := []byte("fake rpm payload")
	srv := serve(t, map[string][]byte{"/rpm-5.4.14.src.rpm": rpm})

	r := &scriptedRunner{do: func(c runner.Command) error {
		// Emulate rpm2cpio | cpio writing the requested member.
		return os.WriteFile(filepath.Join(c.Dir, c.Args[len(c.Args)-1]), inner, 0644)
	}}
	strategies := Defaults(newFetcher(), r, nil)
	s, err := strategies.For(types.SourceSpec{Strategy: "rpm"})
	require.NoError(t, err)

	res, err := s.Fetch(context.Background(), Request{
		Formula: "rpm",
		Version: "5.4.14",
		Source:  types.SourceSpec{URL: srv.URL + "/rpm-5.4.14.src.rpm", Checksum: sha256Of(rpm), Strategy: "rpm"},
		WorkDir: t.TempDir(),
	})
	require.NoError(t, err)
	require.Len(t, r.commands, 1)
	assert.Equal(t, "rpm-5.4.14.tar.gz", r.commands[0].Args[len(r.commands[0].Args)-1])
	assert.Equal(t, "rpm", res.Strategy)
	assert.Equal(t, sha256Of(rpm), res.Checksum)
	assert.FileExists(t, filepath.Join(res.SourceDir, "configure"))
}

func TestRPMTransformFailure(t *testing.T) {
	rpm := []byte("payload")
	srv := serve(t, map[string][]byte{"/x.src.rpm": rpm})
	r := &scriptedRunner{do: func(runner.Command) error { return assert.AnError }}

	s := NewTransformStrategy("rpm", newFetcher(), RPMTransform(r), nil)
	_, err := s.Fetch(context.Background(), Request{
		Formula: "x",
		Version: "1",
		Source:  types.SourceSpec{URL: srv.URL + "/x.src.rpm", Checksum: sha256Of(rpm)},
		WorkDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrUnsupportedArchive))
	assert.Equal(t, "cpio: boom", cerrors.GetDetailString(err, cerrors.DetailOutput))
}

func TestStrategiesFor(t *testing.T) {
	s := Defaults(newFetcher(), &scriptedRunner{}, nil)
	assert.Equal(t, []string{"archive", "rpm"}, s.Names())

	def, err := s.For(types.SourceSpec{})
	require.NoError(t, err)
	assert.IsType(t, &ArchiveStrategy{}, def)

	_, err = s.For(types.SourceSpec{Strategy: "svn"})
	assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrUnsupportedArchive))
}

func TestParseChecksum(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		alg     string
		wantErr bool
	}{
		{"prefixed sha256", sha256Of(nil), "sha256", false},
		{"bare sha1", "d98dd7f2d1a8a84a6d1b5c6ff9d1d0c9ea38a70b", "sha1", false},
		{"bare sha256", sha256Of(nil)[len("sha256:"):], "sha256", false},
		{"empty", "", "", true},
		{"unknown algorithm", "md5:d41d8cd98f00b204e9800998ecf8427e", "", true},
		{"bad length", "abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseChecksum(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, cerrors.IsErrorCode(err, cerrors.ErrIntegrity))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.alg, c.Algorithm)
		})
	}
}

func TestArchiveFormat(t *testing.T) {
	assert.Equal(t, "tar.gz", ArchiveFormat("foo-1.0.tar.gz"))
	assert.Equal(t, "tgz", ArchiveFormat("foo.TGZ"))
	assert.Equal(t, "zip", ArchiveFormat("foo.zip"))
	assert.Equal(t, "", ArchiveFormat("foo.src.rpm"))
}

func TestNewWorkDirIsUnique(t *testing.T) {
	a := NewWorkDir("/cache", "foo")
	b := NewWorkDir("/cache", "foo")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "/cache/build", filepath.Dir(a))
}
