package buildinfo

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Set via ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Modified  bool   `json:"modified,omitempty"`
}

var (
	once sync.Once
	info Info
)

// Get returns the build information. Values missing from ldflags are
// read from the embedded VCS settings.
func Get() Info {
	once.Do(func() { info = resolve(Version, Commit, BuildTime, debug.ReadBuildInfo) })
	return info
}

func resolve(version, commit, built string, read func() (*debug.BuildInfo, bool)) Info {
	out := Info{Version: version, Commit: commit, BuildTime: built, GoVersion: runtime.Version()}
	if bi, ok := read(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if out.Commit == "" {
					out.Commit = s.Value
				}
			case "vcs.time":
				if out.BuildTime == "" {
					out.BuildTime = s.Value
				}
			case "vcs.modified":
				out.Modified = s.Value == "true"
			}
		}
		if out.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			out.Version = bi.Main.Version
		}
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	if out.BuildTime == "" {
		out.BuildTime = "unknown"
	}
	return out
}

// ShortCommit returns the first 12 characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

// String formats the info for --version output.
func (i Info) String() string {
	s := i.Version + " (" + i.ShortCommit()
	if i.Modified {
		s += "-dirty"
	}
	return s + ") built at " + i.BuildTime + " with " + i.GoVersion
}

// String formats the running binary's info.
func String() string {
	return Get().String()
}
