// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"encoding/json"
	"flag"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/devblok/wind/config"
	"github.com/devblok/wind/gfx"
	"github.com/devblok/wind/gfx/driver"
	"github.com/devblok/wind/gfx/driver/vulkan"
	"github.com/devblok/wind/gfx/vkr"
	log "github.com/sirupsen/logrus"
)

var envFile = flag.String("env", "", "Load configuration from the given dotenv file")

// deviceInfo is the JSON form of a physical device.
type deviceInfo struct {
	Name        string   `json:"name"`
	VendorID    int      `json:"vendorId"`
	DeviceID    int      `json:"deviceId"`
	QueueFamily int      `json:"queueFamily"`
	Memory      uint64   `json:"memory"`
	HostVisible int      `json:"hostVisibleTypes"`
	Extensions  []string `json:"extensions"`
}

func describe(pd driver.PhysicalDevice) deviceInfo {
	info := deviceInfo{
		Name:        pd.Name,
		VendorID:    pd.VendorID,
		DeviceID:    pd.DeviceID,
		QueueFamily: pd.QueueFamily,
		Memory:      pd.Memory,
		Extensions:  pd.Extensions,
	}
	for _, mt := range pd.MemoryTypes {
		if mt.Properties.Has(driver.HostWritable) {
			info.HostVisible++
		}
	}
	return info
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.WithError(err).Fatal("Failed to list devices")
	}
}

func run() (err error) {
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.FromEnvironment(files...)
	if err != nil {
		return err
	}

	drv, err := vulkan.New(nil)
	if err != nil {
		return err
	}
	instance, err := vkr.NewInstance(drv, vkr.InstanceConfig{
		ApplicationName: "windcli",
		Validation:      cfg.Instance.Validation,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.CombineErrors(err, gfx.ReleaseAll(instance))
	}()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return err
	}
	out := make([]deviceInfo, 0, len(devices))
	for _, pd := range devices {
		out = append(out, describe(pd))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
