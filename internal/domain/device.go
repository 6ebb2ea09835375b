package domain

import "strings"

// Device — вычислительное устройство, на котором работает энкодер.
type Device string

const (
	DeviceAuto    Device = "auto"
	DeviceCUDA    Device = "cuda"
	DeviceMPS     Device = "mps"
	DeviceCPU     Device = "cpu"
	DeviceUnknown Device = "unknown"
)

func ParseDevice(s string) Device {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceCUDA:
		return DeviceCUDA
	case DeviceMPS:
		return DeviceMPS
	case DeviceCPU:
		return DeviceCPU
	case DeviceAuto, "":
		return DeviceAuto
	default:
		return DeviceUnknown
	}
}

// IsAccelerated сообщает, что устройство аппаратно ускорено.
func (d Device) IsAccelerated() bool {
	return d == DeviceCUDA || d == DeviceMPS
}

// SelectDevice выбирает устройство по предпочтению из конфигурации и списку доступных.
// auto выбирает первое ускоренное устройство, иначе cpu.
func SelectDevice(preferred Device, available []Device) Device {
	if preferred != DeviceAuto && preferred != DeviceUnknown {
		for _, d := range available {
			if d == preferred {
				return d
			}
		}
		return DeviceCPU
	}

	for _, d := range available {
		if d.IsAccelerated() {
			return d
		}
	}

	return DeviceCPU
}
