package custody

import "runtime/debug"

// Release is the semantic version of this build. Untagged builds carry the
// -dev suffix.
const Release = "v0.1.0-dev"

// GitCommit can be set with
//
//	-ldflags "-X github.com/iov-one/custody.GitCommit=<sha>"
//
// When empty, the VCS revision recorded by the Go toolchain is used.
var GitCommit = ""

// Version returns the release followed by the short commit hash, if known.
// A trailing "+" marks a build from a modified work tree.
func Version() string {
	commit, dirty := GitCommit, false
	if commit == "" {
		commit, dirty = buildRevision()
	}
	if commit == "" {
		return Release
	}
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if dirty {
		commit += "+"
	}
	return Release + " " + commit
}

func buildRevision() (rev string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", false
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return rev, dirty
}
