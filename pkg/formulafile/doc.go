// Package formulafile loads formulas declared in TOML or YAML files.
//
// A file describes the same fields as types.Formula plus an [install]
// section of shell-style command lines:
//
//	name = "hello"
//	version = "2.12"
//
//	[source]
//	url = "https://ftp.gnu.org/gnu/hello/hello-2.12.tar.gz"
//	checksum = "sha256:cf04af86dc085268c5f4470fbae49b18afbc221b78096aab842d934a76bad0ab"
//
//	[[options]]
//	name = "nls"
//	description = "Build with native language support"
//
//	[install]
//	configure = ["./configure --prefix=${prefix}"]
//	build = ["make ${jobs}"]
//	install = ["make install"]
//
//	[[install.args]]
//	flag = "--disable-nls"
//	unless = "nls"
//
// Each command line is split into words with shell quoting rules and then
// every ${var} in a word is replaced by the keg variable of that name
// (prefix, bin, lib, share, man, etc, var, opt_prefix, ...), ${jobs} by
// the make -j flag and ${make_jobs} by the bare job count. Unknown
// variables are left as written. Option-gated [[install.args]] are
// expanded the same way and appended to the first configure command.
package formulafile
