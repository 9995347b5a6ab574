package main

import (
	. "github.com/saylorsolutions/modmake"
)

const (
	stubpackVersion = "0.1.0"
)

func main() {
	b := NewBuild()
	b.Generate().DependsOnRunner("tidy", "", Go().ModTidy())

	stubpack := NewAppBuild("stubpack", "cmd/stubpack", stubpackVersion)
	stubpack.Build(func(gb *GoBuild) {
		gb.
			StripDebugSymbols().
			SetVariable("main", "version", stubpackVersion).
			CgoEnabled(false)
	})
	for _, variant := range [][2]string{
		{"windows", "amd64"},
		{"linux", "amd64"},
		{"linux", "arm64"},
		{"darwin", "amd64"},
		{"darwin", "arm64"},
	} {
		stubpack.Variant(variant[0], variant[1])
	}
	b.ImportApp(stubpack)

	b.Execute()
}
