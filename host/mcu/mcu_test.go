package mcu

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"rscp/config"
	"rscp/protocol"
)

func pipeConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse("[link]\nkind = \"pipe\"\n[device]\nshutters = 2\ncpu_type = 2\n")
	require.NoError(t, err)
	return cfg
}

func TestConnectPipeAndIdentify(t *testing.T) {
	m := NewMCU(pipeConfig(t), zerolog.Nop(), nil)
	require.NoError(t, m.Connect())
	defer m.Close()

	require.True(t, m.IsConnected())
	require.NotNil(t, m.Sim())

	id, err := m.Identify()
	require.NoError(t, err)
	require.Equal(t, uint8(protocol.CPUTypeESP32WROOM02D), id.CPUType)

	var out bytes.Buffer
	m.PrintIdentity(&out)
	require.Contains(t, out.String(), "ESP32-WROOM-02D")
	require.Contains(t, out.String(), "set_buzzer_action")
}

func TestMasterReachesSimulatedPanel(t *testing.T) {
	m := NewMCU(pipeConfig(t), zerolog.Nop(), nil)
	require.NoError(t, m.Connect())
	defer m.Close()

	code, err := m.Master().SetSwitchRelay(protocol.SwitchRelay{Status: protocol.SwitchOn}, m.Timeout())
	require.NoError(t, err)
	require.Equal(t, protocol.CodeOK, code)
	require.Equal(t, uint8(protocol.SwitchOn), m.Sim().SwitchRelay().Status)
}

func TestIdentifyRequiresConnection(t *testing.T) {
	m := NewMCU(pipeConfig(t), zerolog.Nop(), nil)
	_, err := m.Identify()
	require.Error(t, err)

	var out bytes.Buffer
	m.PrintIdentity(&out)
	require.Contains(t, out.String(), "No identity")
}

func TestCloseTwice(t *testing.T) {
	m := NewMCU(pipeConfig(t), zerolog.Nop(), nil)
	require.NoError(t, m.Connect())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.False(t, m.IsConnected())
}

func TestConnectMissingSerialDevice(t *testing.T) {
	cfg := config.Default()
	cfg.Link.Device = filepath.Join(t.TempDir(), "ttyNONE")

	m := NewMCU(cfg, zerolog.Nop(), nil)
	require.Error(t, m.Connect())
	require.False(t, m.IsConnected())
}

func TestCPUTypeName(t *testing.T) {
	require.Equal(t, "ATmega328P @ 8 MHz", CPUTypeName(protocol.CPUTypeATmega328P8MHz))
	require.Equal(t, "unknown (0x7f)", CPUTypeName(0x7f))
}
