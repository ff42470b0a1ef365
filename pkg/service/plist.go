// Package service renders the launchd property list a formula declares
// for its long running process, and reads one back.
package service

import (
	"os"
	"strings"

	"github.com/arthur-debert/cellar/pkg/errors"
	"github.com/arthur-debert/cellar/pkg/paths"
	"github.com/arthur-debert/cellar/pkg/types"
	"github.com/beevik/etree"
)

const plistDoctype = `DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd"`

// Label returns the descriptor's label, defaulting to "cellar.<formula>".
func Label(formula string, desc types.ServiceDescriptor) string {
	if desc.Label != "" {
		return desc.Label
	}
	return paths.AppName + "." + formula
}

// FileName is the plist's file name inside the keg.
func FileName(formula string, desc types.ServiceDescriptor) string {
	return Label(formula, desc) + ".plist"
}

// Expand substitutes ${var} references with keg variables. Unknown
// variables are left as written.
func Expand(s string, vars map[string]string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := vars[key]; ok {
			return v
		}
		return "${" + key + "}"
	})
}

// Render produces the plist document for desc installed in keg.
func Render(desc types.ServiceDescriptor, keg paths.Keg) ([]byte, error) {
	if len(desc.Program) == 0 {
		return nil, errors.Newf(errors.ErrInvalidInput, "service for %s has no program", keg.Name).
			WithDetail(errors.DetailFormula, keg.Name)
	}
	vars := keg.Vars()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateDirective(plistDoctype)
	plist := doc.CreateElement("plist")
	plist.CreateAttr("version", "1.0")
	dict := plist.CreateElement("dict")

	addKey(dict, "Label").CreateElement("string").SetText(Label(keg.Name, desc))
	addBool(dict, "KeepAlive", desc.KeepAlive)

	args := addKey(dict, "ProgramArguments").CreateElement("array")
	for _, a := range desc.Program {
		args.CreateElement("string").SetText(Expand(a, vars))
	}

	addBool(dict, "RunAtLoad", desc.RunAtLoad)
	if desc.WorkingDirectory != "" {
		addKey(dict, "WorkingDirectory").CreateElement("string").SetText(Expand(desc.WorkingDirectory, vars))
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInternal, "rendering service plist for %s", keg.Name)
	}
	return out, nil
}

// addKey appends <key>name</key> and returns the dict for chaining the
// value element.
func addKey(dict *etree.Element, name string) *etree.Element {
	dict.CreateElement("key").SetText(name)
	return dict
}

func addBool(dict *etree.Element, name string, v bool) {
	addKey(dict, name)
	if v {
		dict.CreateElement("true")
	} else {
		dict.CreateElement("false")
	}
}

// Parse reads a plist produced by Render.
func Parse(data []byte) (types.ServiceDescriptor, error) {
	var desc types.ServiceDescriptor

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return desc, errors.Wrap(err, errors.ErrInvalidInput, "parsing service plist")
	}
	dict := doc.FindElement("/plist/dict")
	if dict == nil {
		return desc, errors.New(errors.ErrInvalidInput, "service plist has no top level dict")
	}

	children := dict.ChildElements()
	for i := 0; i+1 < len(children); i += 2 {
		key, value := children[i], children[i+1]
		if key.Tag != "key" {
			return desc, errors.Newf(errors.ErrInvalidInput, "expected <key>, found <%s>", key.Tag)
		}
		switch strings.TrimSpace(key.Text()) {
		case "Label":
			desc.Label = value.Text()
		case "KeepAlive":
			desc.KeepAlive = value.Tag == "true"
		case "RunAtLoad":
			desc.RunAtLoad = value.Tag == "true"
		case "WorkingDirectory":
			desc.WorkingDirectory = value.Text()
		case "Program":
			desc.Program = []string{value.Text()}
		case "ProgramArguments":
			for _, s := range value.SelectElements("string") {
				desc.Program = append(desc.Program, s.Text())
			}
		}
	}
	return desc, nil
}
