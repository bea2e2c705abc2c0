package osinfo

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/matishsiao/goInfo"
)

type Info struct {
	Kernel              string
	Core                string
	Distribution        string
	DistributionVersion string
	Platform            string
	OS                  string
	Hostname            string
	CPUs                int
	Init                string
}

func (i Info) String() string {
	b := strings.Builder{}
	b.Grow(256) //nolint:gomnd

	b.WriteString("Kernel: ")
	b.WriteString(i.Kernel)
	b.WriteString("\nCore: ")
	b.WriteString(i.Core)
	b.WriteString("\nDistribution: ")
	b.WriteString(i.Distribution)
	b.WriteString("\nDistributionVersion: ")
	b.WriteString(i.DistributionVersion)
	b.WriteString("\nPlatform: ")
	b.WriteString(i.Platform)
	b.WriteString("\nOS: ")
	b.WriteString(i.OS)
	b.WriteString("\nHostname: ")
	b.WriteString(i.Hostname)
	b.WriteString("\nCPUs: ")
	b.WriteString(strconv.Itoa(i.CPUs))
	b.WriteString("\nInit: ")
	b.WriteString(i.Init)

	return b.String()
}

func GetOSInfo() (Info, error) {
	gi, err := goInfo.GetInfo()
	if err != nil {
		return Info{}, err
	}

	result := Info{
		Kernel:   gi.Kernel,
		Core:     gi.Core,
		Platform: gi.Platform,
		OS:       gi.OS,
		Hostname: gi.Hostname,
		CPUs:     gi.CPUs,
	}

	if result.Platform == "" || result.Platform == "unknown" {
		result.Platform = runtime.GOARCH
	}

	switch result.Platform {
	case "x86_64":
		result.Platform = "amd64"
	case "i686", "i386":
		result.Platform = "386"
	case "aarch64":
		result.Platform = "arm64"
	case "armv7l":
		result.Platform = "arm"
	}

	if runtime.GOOS == "linux" {
		dist, version := detectLinuxDist()
		result.Distribution = dist
		result.DistributionVersion = version
	}

	return result, nil
}

// detectLinuxDist reads /etc/os-release, the same source systemd itself uses.
func detectLinuxDist() (string, string) {
	f, err := os.Open("/etc/os-release")
	if err != nil {
		return "", ""
	}
	defer func() {
		_ = f.Close()
	}()

	var dist, version string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "ID="):
			dist = strings.Trim(strings.TrimPrefix(line, "ID="), `"`)
		case strings.HasPrefix(line, "VERSION_ID="):
			version = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
		}
	}

	return dist, version
}
