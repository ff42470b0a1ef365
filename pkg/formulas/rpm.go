package formulas

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/cellar/pkg/types"
)

// RPMStrategy is the download strategy that unpacks the tarball inside a
// source RPM.
const RPMStrategy = "rpm"

// RPM is the rpm5 package manager, built from its source RPM.
func RPM() *types.Formula {
	f := &types.Formula{
		Name:     "rpm",
		Version:  "5.4.14",
		Homepage: "http://www.rpm5.org/",
		Source: types.SourceSpec{
			URL:      "http://rpm5.org/files/rpm/rpm-5.4/rpm-5.4.14-0.20131024.src.rpm",
			Checksum: "sha1:ea1a5f073ba4923d32f98b4e95a3f2555824f22c",
			Strategy: RPMStrategy,
		},
		Procedure: types.ProcedureFuncs{
			ConfigureFunc: configureRPM,
			BuildFunc: func(ctx context.Context, env types.BuildEnv) error {
				return env.Run(ctx, "make")
			},
			InstallFunc: func(ctx context.Context, env types.BuildEnv) error {
				return env.System(ctx, "make install")
			},
		},
	}
	for _, dep := range []string{
		"berkeley-db", "libmagic", "popt", "beecrypt", "libtasn1",
		"neon", "gettext", "xz", "ossp-uuid", "pcre",
	} {
		f.Dependencies = append(f.Dependencies, types.Dependency{Name: dep})
	}
	f.Dependencies = append(f.Dependencies, types.Dependency{Name: "rpm2cpio", Kind: types.Build})
	return f
}

func configureRPM(ctx context.Context, env types.BuildEnv) error {
	keg := env.Keg()
	magic := filepath.Join(keg.Prefix.Opt("libmagic"), "share", "misc", "magic")
	return env.Run(ctx, "./configure",
		"--prefix="+keg.Root,
		"--localstatedir="+keg.Var(),
		"--with-path-cfg="+filepath.Join(keg.Etc(), "rpm"),
		"--with-path-magic="+magic,
		"--with-extra-path-macros="+filepath.Join(keg.Lib(), "rpm", "macros.*"),
		"--with-libiconv-prefix=/usr",
		"--disable-openmp",
		"--disable-nls",
		"--disable-dependency-tracking",
		"--with-db=external",
		"--with-file=external",
		"--with-popt=external",
		"--with-beecrypt=external",
		"--with-libtasn1=external",
		"--with-neon=external",
		"--with-uuid=external",
		"--with-pcre=external",
		"--with-lua=internal",
		"--with-sqlite=external",
		"--with-syck=internal",
		"--without-apidocs",
		"varprefix="+keg.Var(),
	)
}
