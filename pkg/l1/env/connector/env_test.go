package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/biped.go/pkg/l1/comm/mqtt"
)

func TestNewConnector(t *testing.T) {
	testCases := []struct {
		url string
		ok  bool
	}{
		{url: "mqtt://localhost:1883/biped/", ok: true},
		{url: "mqtts://broker:8883/", ok: true},
		{url: "ws://localhost:8080/"},
		{url: "://bad"},
	}
	for _, tc := range testCases {
		conf := &Config{RegistryURL: tc.url}
		connector, err := conf.NewConnector()
		if !tc.ok {
			require.Error(t, err, tc.url)
			continue
		}
		require.NoError(t, err, tc.url)
		require.IsType(t, &mqtt.Connector{}, connector)
	}
}

func TestConnectRequiresRef(t *testing.T) {
	conf := &Config{RegistryURL: DefaultRegistryURL}
	_, err := conf.Connect(context.Background())
	require.Equal(t, ErrNoController, err)
}
