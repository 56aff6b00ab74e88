// Package env provides the environment shared by L1 controllers and
// their clients.
package env

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine ID so it isn't exposed on the wire.
const AppID = "biped.go"

// MachineID retrieves the unique ID identifying the machine, or an empty
// string if not available.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return ""
	}
	return id
}
