package formulas

import (
	"context"

	"github.com/arthur-debert/cellar/pkg/types"
)

// Algol68g is the Algol 68 Genie interpreter.
func Algol68g() *types.Formula {
	return &types.Formula{
		Name:     "algol68g",
		Version:  "2.8",
		Homepage: "http://www.xs4all.nl/~jmvdveer/algol.html",
		Source: types.SourceSpec{
			URL:      "http://jmvdveer.home.xs4all.nl/algol68g-2.8.tar.gz",
			Checksum: "sha1:46b43b8db53e2a8c02e218ca9c81cf5e6ce924fd",
		},
		Options: []types.Option{
			{Name: "with-gsl", Description: "Build with the GNU Scientific Library"},
		},
		Dependencies: []types.Dependency{
			{Name: "gsl", Optional: true},
		},
		Procedure: types.ProcedureFuncs{
			ConfigureFunc: func(ctx context.Context, env types.BuildEnv) error {
				return env.Run(ctx, "./configure", "--prefix="+env.Keg().Root)
			},
			InstallFunc: func(ctx context.Context, env types.BuildEnv) error {
				return env.System(ctx, "make install")
			},
		},
	}
}
