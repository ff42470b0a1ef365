package formulas

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arthur-debert/cellar/pkg/options"
	"github.com/arthur-debert/cellar/pkg/types"
)

func perconaCaveats(dataDir string) string {
	return `Set up databases to run AS YOUR USER ACCOUNT with:

    unset TMPDIR
    mysql_install_db --verbose --user=$(whoami) --basedir="${opt_prefix}" --datadir=` + dataDir + ` --tmpdir=/tmp

To set up base tables in another folder, or use a different user to run
mysqld, view the help for mysql_install_db:

    mysql_install_db --help

A "/etc/my.cnf" from another install may interfere with a cellar-built
server starting up correctly.

To connect:

    mysql -uroot
`
}

var (
	mysqlConfigWarnings = regexp.MustCompile(` +-Wno[\w-]+`)
	mysqlServerPath     = regexp.MustCompile(`(?m)^(PATH=".*)(")`)
)

// PerconaServer is the Percona build of the MySQL server.
func PerconaServer() *types.Formula {
	return &types.Formula{
		Name:     "percona-server",
		Version:  "5.6.14-rel62.0",
		Homepage: "http://www.percona.com",
		Source: types.SourceSpec{
			URL:      "http://www.percona.com/redir/downloads/Percona-Server-5.6/LATEST/release-5.6.14-62.0/483/source/Percona-Server-5.6.14-rel62.0.tar.gz",
			Checksum: "sha1:6d9ddd92338c70ec13bdeb9a23568a990a5766f9",
		},
		Options: []types.Option{
			{Name: options.Universal, Description: "Build a universal binary"},
			{Name: "with-tests", Description: "Build with unit tests"},
			{Name: "with-embedded", Description: "Build the embedded server"},
			{Name: "with-readline", Description: "Compile with readline", Default: true},
			{Name: "with-libedit", Description: "Compile with editline wrapper instead of readline"},
			{Name: "enable-local-infile", Description: "Build with local infile loading support"},
		},
		OptionGroups: []types.OptionGroup{
			{Name: "line-editor", Members: []string{"with-readline", "with-libedit"}, Default: "with-readline"},
		},
		Dependencies: []types.Dependency{
			{Name: "cmake", Kind: types.Build},
			{Name: "readline"},
			{Name: "pidof"},
		},
		Conflicts: []types.Conflict{
			{Name: "mariadb", Reason: "percona, mariadb, and mysql install the same binaries."},
			{Name: "mysql", Reason: "percona, mariadb, and mysql install the same binaries."},
			{Name: "mysql-cluster", Reason: "percona, mariadb, and mysql install the same binaries."},
		},
		Patches: []types.Patch{
			// Fixes compilation on OS X 10.9.
			{Source: "https://gist.github.com/israelshirk/7cc640498cf264ebfce3/raw/846839c84647c4190ad683e4cbf0fabcd8931f97/gistfile1.txt"},
		},
		Caveats: perconaCaveats("${var}/mysql"),
		CaveatsFunc: func(env types.BuildEnv) string {
			return perconaCaveats(perconaServer{}.dataDir(env))
		},
		Service: &types.ServiceDescriptor{
			Program:          []string{"${opt_prefix}/bin/mysqld_safe"},
			KeepAlive:        true,
			RunAtLoad:        true,
			WorkingDirectory: "${var}",
			ManualCommand:    "mysql.server start",
		},
		Procedure: perconaServer{},
	}
}

type perconaServer struct{}

// dataDir keeps existing installs on var/percona; new ones share
// var/mysql with the other MySQL builds.
func (perconaServer) dataDir(env types.BuildEnv) string {
	varDir := env.Keg().Var()
	if fi, err := env.Stat(filepath.Join(varDir, "percona")); err == nil && fi.IsDir() {
		return filepath.Join(varDir, "percona")
	}
	return filepath.Join(varDir, "mysql")
}

// CMakeArgs are the cmake arguments for cfg with the server's data in
// dataDir.
func (p perconaServer) CMakeArgs(cfg types.BuildConfig, dataDir string) []string {
	keg := cfg.Keg
	return options.NewArgs(cfg,
		".",
		"-DCMAKE_INSTALL_PREFIX="+keg.Root,
		"-DMYSQL_DATADIR="+dataDir,
		"-DINSTALL_MANDIR="+keg.Man(),
		"-DINSTALL_DOCDIR="+keg.Doc(),
		"-DINSTALL_INFODIR="+keg.Info(),
		// cmake prepends the install prefix
		"-DINSTALL_MYSQLSHAREDIR=share/mysql",
		"-DWITH_SSL=yes",
		"-DDEFAULT_CHARSET=utf8",
		"-DDEFAULT_COLLATION=utf8_general_ci",
		"-DSYSCONFDIR="+keg.Etc(),
		"-DCMAKE_BUILD_TYPE=RelWithDebInfo",
		"-DWITHOUT_AUTH_PAM=1",
		"-DWITHOUT_AUTH_PAM_COMPAT=1",
		"-DWITHOUT_DIALOG=1",
	).
		Choose("with-tests", []string{"-DENABLE_DOWNLOADS=ON"}, []string{"-DWITH_UNIT_TESTS=OFF"}).
		AddIf("with-embedded", "-DWITH_EMBEDDED_SERVER=ON").
		AddIf("with-readline", "-DWITH_READLINE=yes").
		AddIf(options.Universal, "-DCMAKE_OSX_ARCHITECTURES="+strings.Join(cfg.Archs, ";")).
		AddIf("enable-local-infile", "-DENABLED_LOCAL_INFILE=1").
		Strings()
}

func (p perconaServer) Configure(ctx context.Context, env types.BuildEnv) error {
	dataDir := p.dataDir(env)
	if err := env.MkdirAll(dataDir); err != nil {
		return err
	}
	return env.Run(ctx, "cmake", p.CMakeArgs(env.Config(), dataDir)...)
}

func (perconaServer) Build(ctx context.Context, env types.BuildEnv) error {
	return env.Run(ctx, "make")
}

func (perconaServer) Install(ctx context.Context, env types.BuildEnv) error {
	keg := env.Keg()

	// Reported upstream as http://bugs.mysql.com/bug.php?id=69645
	if err := env.InReplace("scripts/mysql_config", mysqlConfigWarnings, ""); err != nil {
		return err
	}
	if err := env.System(ctx, "make install"); err != nil {
		return err
	}

	// Databases must not live inside the keg.
	if err := env.RemoveAll(filepath.Join(keg.Root, "data")); err != nil {
		return err
	}

	if err := env.MkdirAll(keg.Bin()); err != nil {
		return err
	}
	if err := env.Symlink(filepath.Join(keg.Root, "scripts", "mysql_install_db"), filepath.Join(keg.Bin(), "mysql_install_db")); err != nil {
		return err
	}

	server := filepath.Join(keg.Root, "support-files", "mysql.server")
	if err := env.InReplace(server, mysqlServerPath, "${1}:"+keg.Prefix.Bin()+"${2}"); err != nil {
		return err
	}
	if err := env.Symlink(server, filepath.Join(keg.Bin(), "mysql.server")); err != nil {
		return err
	}

	if err := env.MkdirAll(keg.Libexec()); err != nil {
		return err
	}
	for _, name := range []string{"mysqlaccess", "mysqlaccess.conf"} {
		if err := env.Move(filepath.Join(keg.Bin(), name), keg.Libexec()); err != nil {
			return err
		}
	}
	return nil
}
