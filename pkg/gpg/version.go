package gpg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

var (
	versionLine = regexp.MustCompile(`^gpg \(GnuPG[^)]*\) (\S+)`)

	pinentryModeConstraint = version.MustConstraints(version.NewConstraint(">= 2.1"))
)

// ProbeVersion runs "gpg --version" and parses the reported tool version.
func ProbeVersion(ctx context.Context, runner Runner) (*version.Version, error) {
	out, err := runner.Run(ctx, []string{"--version"}, nil)
	if err != nil {
		return nil, err
	}
	return ParseVersion(out)
}

// ParseVersion extracts the version from "gpg --version" output.
func ParseVersion(output []byte) (*version.Version, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	if scanner.Scan() {
		if m := versionLine.FindStringSubmatch(scanner.Text()); m != nil {
			return version.NewVersion(m[1])
		}
	}
	return nil, fmt.Errorf("unrecognized version output: %q", firstLine(output))
}

// SupportsPinentryMode reports whether v understands --pinentry-mode.
func SupportsPinentryMode(v *version.Version) bool {
	return v != nil && pinentryModeConstraint.Check(v)
}

func firstLine(b []byte) []byte {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i]
	}
	return b
}
