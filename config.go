package pljava

import (
	"os"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/tada/pljava-sub010/types"
)

// Config holds the per-process settings of the bridge, mirroring the
// pljava.* server settings. A Config is read once when the JVM boots;
// changing it afterwards has no effect.
type Config struct {
	// VMOptions are extra JVM options (pljava.vmoptions), already split.
	VMOptions []string

	// Classpath entries handed to the JVM (pljava.classpath). Entries may
	// reference $libdir.
	Classpath []string

	// LibDir is the substitution value for $libdir in classpath entries and
	// VM options, normally the server's package library directory.
	LibDir string

	// LibJVMLocation is the path of the JVM library to load
	// (pljava.libjvm_location). Empty means the runtime's default.
	LibJVMLocation string

	// LibraryPath entries become java.library.path, merged with the
	// process's dynamic-loader search path. Entries may reference $libdir.
	LibraryPath []string

	// DebugWait pauses startup until a debugger attaches (pljava.debug).
	DebugWait bool

	// ReleaseLingeringSavepoints decides what happens to savepoints still
	// open when their invocation pops: release them as committed (true) or
	// roll them back (false). Either way a warning is logged
	// (pljava.release_lingering_savepoints).
	ReleaseLingeringSavepoints bool

	// MinJavaVersion is the lowest acceptable JVM version ("11", "17.0.2").
	// Empty disables the gate.
	MinJavaVersion string

	// FloatDatetimes selects the float8 on-disk convention for the temporal
	// types. Matches the server's integer_datetimes=off build.
	FloatDatetimes bool

	// ServerEncoding is the server_encoding name. Empty means UTF8.
	ServerEncoding string

	Logger   Logger
	LogLevel LogLevel

	// Catalog resolves type oids this bridge has no built-in module for.
	Catalog types.Catalog

	// SPI executes queries the Java side issues through java.sql.
	SPI SPIExecutor

	// CastExec executes server cast functions for the coercion pathways.
	CastExec types.CastExec
}

// ParseSettings fills a Config from pljava.* setting names, the way the
// settings arrive from the server.
func ParseSettings(settings map[string]string) (*Config, error) {
	cfg := &Config{}
	for name, value := range settings {
		switch name {
		case "pljava.vmoptions":
			opts, err := splitOptions(value)
			if err != nil {
				return nil, errors.Wrap(err, "pljava.vmoptions")
			}
			cfg.VMOptions = opts
		case "pljava.classpath":
			if value != "" {
				cfg.Classpath = strings.Split(value, ":")
			}
		case "pljava.libjvm_location":
			cfg.LibJVMLocation = value
		case "pljava.debug":
			cfg.DebugWait = value == "on" || value == "true"
		case "pljava.release_lingering_savepoints":
			cfg.ReleaseLingeringSavepoints = value == "on" || value == "true"
		default:
			return nil, errors.Errorf("unknown setting %s", name)
		}
	}
	return cfg, nil
}

// splitOptions splits a vmoptions string on whitespace, honoring single and
// double quotes so option values may contain spaces.
func splitOptions(s string) ([]string, error) {
	var opts []string
	var cur strings.Builder
	var quote byte
	flush := func() {
		if cur.Len() > 0 {
			opts = append(opts, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' || c == '\t':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, errors.Errorf("unterminated %c quote", quote)
	}
	flush()
	return opts, nil
}

// substituteLibDir expands $libdir at the start of a path entry.
func (c *Config) substituteLibDir(entry string) string {
	if strings.HasPrefix(entry, "$libdir") {
		return c.LibDir + entry[len("$libdir"):]
	}
	return entry
}

// expandEntries applies $libdir to each entry and appends the colon-split
// contents of the named environment variable.
func (c *Config) expandEntries(entries []string, envVar string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.substituteLibDir(e))
	}
	if env := os.Getenv(envVar); env != "" {
		out = append(out, strings.Split(env, string(os.PathListSeparator))...)
	}
	return out
}

// loaderPathVar is the environment variable naming the dynamic-loader search
// path on this platform.
func loaderPathVar() string {
	if runtime.GOOS == "windows" {
		return "PATH"
	}
	return "LD_LIBRARY_PATH"
}

// VMArguments assembles the full JVM option list: the class path built from
// Classpath merged with $CLASSPATH, the library path merged with the
// loader's search path (both with $libdir expanded), then the caller's
// VMOptions.
func (c *Config) VMArguments() []string {
	args := make([]string, 0, len(c.VMOptions)+2)
	if len(c.Classpath) > 0 {
		entries := c.expandEntries(c.Classpath, "CLASSPATH")
		args = append(args, "-Djava.class.path="+strings.Join(entries, string(os.PathListSeparator)))
	}
	if len(c.LibraryPath) > 0 {
		entries := c.expandEntries(c.LibraryPath, loaderPathVar())
		args = append(args, "-Djava.library.path="+strings.Join(entries, string(os.PathListSeparator)))
	}
	for _, o := range c.VMOptions {
		args = append(args, c.substituteLibDir(o))
	}
	if c.DebugWait {
		args = append(args, "-agentlib:jdwp=transport=dt_socket,server=y,suspend=y,address=*:0")
	}
	return args
}

// CheckJavaVersion gates the reported JVM version against MinJavaVersion.
func (c *Config) CheckJavaVersion(version string) error {
	if c.MinJavaVersion == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(">= " + c.MinJavaVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid minimum Java version %q", c.MinJavaVersion)
	}
	// Java version strings have build suffixes ("17.0.2+8") semver cannot
	// always digest; keep the dotted prefix.
	trimmed := version
	if i := strings.IndexAny(trimmed, "+_-"); i >= 0 {
		trimmed = trimmed[:i]
	}
	v, err := semver.NewVersion(trimmed)
	if err != nil {
		return errors.Wrapf(err, "cannot parse Java version %q", version)
	}
	if !constraint.Check(v) {
		return errors.Errorf("Java %s is below the required %s", version, c.MinJavaVersion)
	}
	return nil
}

// registryConfig derives the types.Registry configuration.
func (c *Config) registryConfig(castExec types.CastExec) types.Config {
	return types.Config{
		Catalog:        c.Catalog,
		ServerEncoding: c.ServerEncoding,
		FloatDatetimes: c.FloatDatetimes,
		CastExec:       castExec,
	}
}
