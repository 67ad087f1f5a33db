package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/abcfe/abcfe-metadata/internal/dashboard/api"
	"github.com/abcfe/abcfe-metadata/internal/dashboard/components"
	"github.com/abcfe/abcfe-metadata/internal/dashboard/styles"
	prt "github.com/abcfe/abcfe-metadata/protocol"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// 상세 화면에 보여줄 최대 항목 수
const maxDetailEntries = 8

// Config는 대시보드 설정
type Config struct {
	Host       string
	Ports      []int
	LogPath    string
	RefreshSec int
}

// StoreInfo는 저장소 서버 상태 정보
type StoreInfo struct {
	Port   int
	Online bool
	Info   *api.StoreInfo
	Stats  *api.StoreStats
	Error  string
}

// Model은 Bubbletea 모델
type Model struct {
	config        Config
	stores        []StoreInfo
	clients       []*api.Client
	selectedStore int
	width         int
	height        int
	logViewer     *components.LogViewer
	keys          keyMap
	help          help.Model
	quitting      bool
}

// Run은 대시보드 실행
func Run(config Config) error {
	m := initialModel(config)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config) Model {
	stores := make([]StoreInfo, len(config.Ports))
	clients := make([]*api.Client, len(config.Ports))

	for i, port := range config.Ports {
		stores[i] = StoreInfo{Port: port}
		clients[i] = api.NewClient(config.Host, port)
	}

	return Model{
		config:    config,
		stores:    stores,
		clients:   clients,
		logViewer: components.NewLogViewer(config.LogPath, 10),
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

// tickMsg는 주기적 업데이트 메시지
type tickMsg time.Time

// storeUpdateMsg는 저장소 상태 업데이트 메시지
type storeUpdateMsg struct {
	index int
	info  *api.StoreInfo
	stats *api.StoreStats
	err   error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.config.RefreshSec),
		m.fetchAllStores(),
	)
}

func tickCmd(seconds int) tea.Cmd {
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchAllStores() tea.Cmd {
	var cmds []tea.Cmd
	for i := range m.clients {
		cmds = append(cmds, m.fetchStore(i))
	}
	return tea.Batch(cmds...)
}

func (m Model) fetchStore(index int) tea.Cmd {
	return func() tea.Msg {
		client := m.clients[index]

		info, err := client.GetInfo()
		if err != nil {
			return storeUpdateMsg{index: index, err: err}
		}

		stats, err := client.GetStats()
		if err != nil {
			return storeUpdateMsg{index: index, err: err}
		}

		return storeUpdateMsg{index: index, info: info, stats: stats}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetchAllStores()

		case key.Matches(msg, m.keys.Up):
			if m.selectedStore > 0 {
				m.selectedStore--
			}

		case key.Matches(msg, m.keys.Down):
			if m.selectedStore < len(m.stores)-1 {
				m.selectedStore++
			}

		case key.Matches(msg, m.keys.Jump):
			idx := int(msg.String()[0] - '1')
			if idx < len(m.stores) {
				m.selectedStore = idx
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		cmds = append(cmds, tickCmd(m.config.RefreshSec))
		cmds = append(cmds, m.fetchAllStores())
		m.logViewer.Refresh()

	case storeUpdateMsg:
		if msg.index < len(m.stores) {
			store := &m.stores[msg.index]
			if msg.err != nil {
				store.Online = false
				store.Error = msg.err.Error()
			} else {
				store.Online = true
				store.Info = msg.info
				store.Stats = msg.stats
				store.Error = ""
			}
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// 헤더
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// 저장소 테이블
	b.WriteString(m.renderStoresTable())
	b.WriteString("\n")

	// 선택된 저장소 상세 정보
	if m.selectedStore < len(m.stores) {
		b.WriteString(m.renderStoreDetails(m.stores[m.selectedStore]))
		b.WriteString("\n")
	}

	// 로그 뷰어
	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	b.WriteString(styles.HelpBarStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(" ABCFe Metadata Dashboard v1.0.0 ")

	onlineCount := 0
	var totalWrites uint64
	for _, s := range m.stores {
		if s.Online {
			onlineCount++
			if s.Stats != nil {
				totalWrites += s.Stats.TotalWrites
			}
		}
	}

	status := fmt.Sprintf("저장소: %d/%d 온라인", onlineCount, len(m.stores))
	if totalWrites > 0 {
		status += fmt.Sprintf(" | 전체 쓰기: %d", totalWrites)
	}

	statusText := styles.MutedStyle.Render(status)

	// 오른쪽 정렬
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(statusText) - 2
	if gap < 1 {
		gap = 1
	}

	return title + strings.Repeat(" ", gap) + statusText
}

func (m Model) renderStoresTable() string {
	var b strings.Builder

	header := fmt.Sprintf("%-4s %-6s %-8s %-8s %-8s %-6s %-8s",
		"#", "Port", "Status", "Entries", "Writes", "WS", "Version")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for i, store := range m.stores {
		row := renderStoreRow(i, store)
		if i == m.selectedStore {
			b.WriteString(styles.TableSelectedRowStyle.Render(row))
		} else {
			b.WriteString(styles.TableRowStyle.Render(row))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func renderStoreRow(index int, store StoreInfo) string {
	num := fmt.Sprintf("%d", index+1)
	port := fmt.Sprintf("%d", store.Port)

	if !store.Online {
		return fmt.Sprintf("%-4s %-6s %-8s %-8s %-8s %-6s %-8s",
			num, port, "OFFLINE", "-", "-", "-", "-")
	}

	entries, writes, ws, version := "-", "-", "-", "-"
	if store.Stats != nil {
		entries = fmt.Sprintf("%d", store.Stats.Entries)
		writes = fmt.Sprintf("%d", store.Stats.TotalWrites)
		ws = fmt.Sprintf("%d", store.Stats.WSClients)
	}
	if store.Info != nil {
		version = store.Info.Version
	}

	return fmt.Sprintf("%-4s %-6s %-8s %-8s %-8s %-6s %-8s",
		num, port, "ONLINE", entries, writes, ws, version)
}

func (m Model) renderStoreDetails(store StoreInfo) string {
	var b strings.Builder

	title := fmt.Sprintf("Store %d Entries (Port: %d)", m.selectedStore+1, store.Port)
	b.WriteString(styles.HeaderStyle.Render(title))
	b.WriteString("\n")

	if !store.Online {
		b.WriteString(styles.ErrorStyle.Render("  ✗ 오프라인"))
		if store.Error != "" {
			b.WriteString("\n")
			b.WriteString(styles.MutedStyle.Render("  " + store.Error))
		}
		return b.String()
	}

	if store.Stats == nil || len(store.Stats.List) == 0 {
		b.WriteString(styles.MutedStyle.Render("  저장된 항목 없음"))
		return b.String()
	}

	for i, e := range store.Stats.List {
		if i == maxDetailEntries {
			b.WriteString(styles.MutedStyle.Render(
				fmt.Sprintf("  ... 외 %d개", len(store.Stats.List)-maxDetailEntries)))
			break
		}

		magic := e.MagicHash
		if len(magic) > 16 {
			magic = magic[:16] + "..."
		}
		b.WriteString(fmt.Sprintf("  %-34s %-20s %s  %s\n",
			e.Address,
			prt.EntryType(e.TypeID).String(),
			styles.WriteCountStyle(e.WriteCount).Render(fmt.Sprintf("%6d", e.WriteCount)),
			styles.MutedStyle.Render(magic)))
	}

	return b.String()
}
