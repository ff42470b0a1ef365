package formulas

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/cellar/pkg/types"
)

// Yeti is the ML-style language for the JVM.
func Yeti() *types.Formula {
	return &types.Formula{
		Name:     "yeti",
		Version:  "0.9.8",
		Homepage: "http://mth.github.io/yeti/",
		Head:     "https://github.com/mth/yeti.git",
		Source: types.SourceSpec{
			URL:      "https://github.com/mth/yeti/archive/v0.9.8.tar.gz",
			Checksum: "sha1:64e6174f765fd1444eff70c4a96ae76b2daa6c79",
		},
		Dependencies: []types.Dependency{
			{Name: "ant", Kind: types.Build},
		},
		Procedure: types.ProcedureFuncs{
			BuildFunc: func(ctx context.Context, env types.BuildEnv) error {
				return env.System(ctx, "ant jar")
			},
			InstallFunc: installYeti,
		},
	}
}

func installYeti(_ context.Context, env types.BuildEnv) error {
	keg := env.Keg()
	if err := env.MkdirAll(keg.Libexec()); err != nil {
		return err
	}
	if err := env.Move("yeti.jar", keg.Libexec()); err != nil {
		return err
	}
	if err := env.MkdirAll(keg.Bin()); err != nil {
		return err
	}
	jar := filepath.Join(keg.Libexec(), "yeti.jar")
	return env.WriteFile(filepath.Join(keg.Bin(), "yeti"), JarScript(jar, "-server"), 0755)
}

// JarScript is a shell wrapper that runs jar with java, passing opts to
// the JVM before the jar and the script's own arguments after it.
func JarScript(jar string, opts ...string) []byte {
	script := "#!/bin/sh\nexec java"
	for _, o := range opts {
		script += " " + o
	}
	return []byte(script + fmt.Sprintf(" -jar %q \"$@\"\n", jar))
}
