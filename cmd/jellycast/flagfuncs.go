package main

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"jellycast.app/jellycast/internal/castclient"
	"jellycast.app/jellycast/internal/config"
	"jellycast.app/jellycast/internal/playback"
)

func checkflags() (exit bool, err error) {
	if checkVerflag() {
		return true, nil
	}

	if err := checkIflag(); err != nil {
		return false, errors.Wrap(err, "checkflags error")
	}

	if err := checkUflag(); err != nil {
		return false, errors.Wrap(err, "checkflags error")
	}

	return false, nil
}

func checkVerflag() bool {
	if *versionPtr {
		fmt.Printf("jellycast Version: %s, ", version)
		fmt.Printf("Build: %s\n", build)
		return true
	}
	return false
}

func checkIflag() error {
	if !*listPtr && *itemArg == "" {
		return errors.New("no item ID defined")
	}
	return nil
}

func checkUflag() error {
	if *serverArg == "" {
		return nil
	}
	if _, err := url.ParseRequestURI(*serverArg); err != nil {
		return errors.Wrap(err, "checkUflag parse error")
	}
	return nil
}

func checkconfig(conf *config.Config) error {
	if conf.ServerURL == "" {
		return errors.New("no server URL configured (config file, JELLYCAST_SERVER or -u)")
	}
	if conf.APIKey == "" {
		return errors.New("no API key configured (config file or JELLYCAST_API_KEY)")
	}
	if conf.UserID == "" {
		return errors.New("no user ID configured (config file or JELLYCAST_USER_ID)")
	}
	return nil
}

func listFlagFunction(discovery *castclient.Discovery) error {
	devices := discovery.Devices()
	if len(devices) == 0 {
		return errors.New("no Google Cast devices found")
	}
	fmt.Println()

	boldStart := ""
	boldEnd := ""
	if runtime.GOOS == "linux" {
		boldStart = "\033[1m"
		boldEnd = "\033[0m"
	}

	for q, dev := range devices {
		fmt.Printf("%sDevice %v%s\n", boldStart, q+1, boldEnd)
		fmt.Printf("%s--------%s\n", boldStart, boldEnd)
		fmt.Printf("%sName:%s %s\n", boldStart, boldEnd, dev.FriendlyName)
		fmt.Printf("%sID:%s   %s\n", boldStart, boldEnd, dev.ID)
		fmt.Println()
	}

	return nil
}

// pickDevice resolves the -t value against the discovered devices, by
// ID first and case-insensitive friendly name second. An empty target
// selects the first castable device.
func pickDevice(coord *playback.Coordinator, target string) (string, error) {
	options := coord.ListDevices()

	// Skip the local pseudo-device; casting needs a remote target.
	remote := make([]playback.DeviceOption, 0, len(options))
	for _, opt := range options {
		if opt.Value == playback.DeviceIDLocal {
			continue
		}
		remote = append(remote, opt)
	}

	if len(remote) == 0 {
		return "", errors.New("pickDevice: no castable devices discovered")
	}

	if target == "" {
		return remote[0].Value, nil
	}

	for _, opt := range remote {
		if opt.Value == target {
			return opt.Value, nil
		}
	}
	for _, opt := range remote {
		if strings.EqualFold(opt.Label, target) {
			return opt.Value, nil
		}
	}

	return "", errors.Errorf("pickDevice: device %q not found", target)
}
