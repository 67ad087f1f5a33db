package dashboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/abcfe/abcfe-metadata/internal/dashboard/api"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestStoreUpdates(t *testing.T) {
	m := initialModel(Config{Host: "localhost", Ports: []int{8600, 8601}, LogPath: t.TempDir() + "/metadata", RefreshSec: 1})

	m = update(t, m, storeUpdateMsg{
		index: 0,
		info:  &api.StoreInfo{Name: "ABCFe Metadata Store", Version: "1.0.0"},
		stats: &api.StoreStats{Entries: 1, TotalWrites: 4, List: []api.EntrySummary{
			{Address: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", TypeID: int32(prt.EntryTypeContacts), WriteCount: 4, MagicHash: strings.Repeat("ab", 32)},
		}},
	})
	m = update(t, m, storeUpdateMsg{index: 1, err: errors.New("connection refused")})

	require.True(t, m.stores[0].Online)
	require.False(t, m.stores[1].Online)
	require.Equal(t, "connection refused", m.stores[1].Error)

	view := m.View()
	require.Contains(t, view, "contacts")
	require.Contains(t, view, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.Contains(t, view, "OFFLINE")
}

func TestKeyNavigation(t *testing.T) {
	m := initialModel(Config{Host: "localhost", Ports: []int{8600, 8601, 8602}, RefreshSec: 1})

	m = update(t, m, runes("j"))
	require.Equal(t, 1, m.selectedStore)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 2, m.selectedStore)

	m = update(t, m, runes("1"))
	require.Equal(t, 0, m.selectedStore)

	// 범위를 벗어난 번호는 무시
	m = update(t, m, runes("9"))
	require.Equal(t, 0, m.selectedStore)

	m = update(t, m, runes("?"))
	require.True(t, m.help.ShowAll)

	m = update(t, m, runes("q"))
	require.True(t, m.quitting)
	require.Empty(t, m.View())
}
