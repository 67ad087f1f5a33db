package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/abcfe/abcfe-metadata/common/utils"
	"github.com/abcfe/abcfe-metadata/internal/dashboard"
	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	host    string
	ports   string
	logPath string
	refresh int
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "abcfe-metadata-dashboard",
		Short: "ABCFe 메타데이터 저장소 모니터링 대시보드",
		Long: `ABCFe Metadata Dashboard - 저장소 서버 실시간 모니터링 TUI

최대 9개 저장소 서버의 항목 수, 쓰기 횟수, 구독자 수, 로그를 한 화면에서 모니터링합니다.

사용 예시:
  abcfe-metadata-dashboard                        # localhost:8600
  abcfe-metadata-dashboard --ports 8600,8601      # 여러 저장소
  abcfe-metadata-dashboard --host 192.168.1.100   # 원격 호스트`,
		Run: func(cmd *cobra.Command, args []string) {
			runDashboard()
		},
	}

	rootCmd.Flags().StringVar(&host, "host", "localhost", "저장소 호스트 주소")
	rootCmd.Flags().StringVar(&ports, "ports", "8600", "모니터링할 포트 (쉼표 구분, 예: 8600,8601)")
	rootCmd.Flags().StringVar(&logPath, "log-path", "~/.abcfe-metadata/log/metadata", "서버 로그 경로 (날짜 접미사 제외)")
	rootCmd.Flags().IntVar(&refresh, "refresh", 1, "새로고침 간격 (초)")

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보 출력",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ABCFe Metadata Dashboard v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

func runDashboard() {
	var portList []int
	for _, p := range strings.Split(ports, ",") {
		var port int
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%d", &port); err == nil {
			portList = append(portList, port)
		}
	}

	if len(portList) == 0 {
		fmt.Println("Error: 유효한 포트가 없습니다")
		os.Exit(1)
	}
	if refresh < 1 {
		refresh = 1
	}

	config := dashboard.Config{
		Host:       host,
		Ports:      portList,
		LogPath:    utils.ExpandHome(logPath),
		RefreshSec: refresh,
	}

	if err := dashboard.Run(config); err != nil {
		fmt.Printf("Dashboard error: %v\n", err)
		os.Exit(1)
	}
}
