// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vulkan

import (
	"sync"
	"unsafe"

	"github.com/devblok/wind/gfx/driver"
	vk "github.com/vulkan-go/vulkan"
)

// The report callback is a plain function, so the receiver of messages
// is process wide. Only one debug instance is expected at a time.
var messages struct {
	sync.RWMutex
	fn func(driver.Message)
}

func setMessages(fn func(driver.Message)) {
	messages.Lock()
	messages.fn = fn
	messages.Unlock()
}

func severity(flags vk.DebugReportFlags) driver.Severity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return driver.SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return driver.SeverityPerformance
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return driver.SeverityWarning
	}
	return driver.SeverityInfo
}

func debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	messages.RLock()
	fn := messages.fn
	messages.RUnlock()
	if fn != nil {
		fn(driver.Message{
			Severity: severity(flags),
			Layer:    pLayerPrefix,
			Code:     messageCode,
			Text:     pMessage,
		})
	}
	return vk.Bool32(vk.False)
}
