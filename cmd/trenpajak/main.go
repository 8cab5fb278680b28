package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trenpajak/internal/config"
	"trenpajak/internal/importer"
	"trenpajak/internal/server"
	"trenpajak/internal/store"
	"trenpajak/internal/util"
)

var (
	configPath string
	dataDir    string
	port       int
	devMode    bool
	outputPath string
)

var rootCmd = &cobra.Command{
	Use:   "trenpajak",
	Short: "Analisis tren pembayaran pajak daerah",
	Long: `trenpajak membaca rekap pembayaran pajak bulanan (CSV / XLSX / XLS),
melengkapi matriks usaha × bulan, menghitung pertumbuhan dan kondisi kepatuhan,
lalu menyimpan setiap unggahan sebagai batch riwayat.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Jalankan server HTTP",
	RunE:  runServe,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Proses file dan simpan sebagai batch baru",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Kelola riwayat batch",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Tampilkan daftar batch",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <batch>",
	Short: "Hapus satu batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Hapus seluruh riwayat",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPurge,
}

var exportCmd = &cobra.Command{
	Use:   "export <batch>",
	Short: "Ekspor batch ke Excel",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config.toml (默认为可执行文件同目录)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")

	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")

	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "输出文件 (默认 hasil_<文件名>.xlsx)")

	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyPurgeCmd)
	rootCmd.AddCommand(serveCmd, importCmd, historyCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置，命令行参数覆盖配置文件
func loadConfig() (*config.AppConfig, config.LoadConfigInfo, error) {
	var (
		cfg  *config.AppConfig
		info config.LoadConfigInfo
		err  error
	)
	if configPath != "" {
		cfg, info, err = config.LoadFrom(configPath)
	} else {
		cfg, info, err = config.LoadConfigWithInfo()
	}
	if err != nil {
		return nil, info, err
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}
	if err := config.ConfigureLogger(cfg.Log); err != nil {
		return nil, info, fmt.Errorf("日志配置无效: %w", err)
	}
	return cfg, info, nil
}

// withStore 打开存储执行 fn 后关闭
func withStore(fn func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := server.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), cfg, st)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, info, err := loadConfig()
	if err != nil {
		return err
	}
	if port > 0 && !info.PortSpecified {
		cfg.Server.Port = port
	}
	if devMode {
		cfg.Server.DevMode = true
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	log := config.GetLogger()
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	url := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("服务启动中")
		errCh <- srv.Run(addr)
	}()

	if !cfg.Server.DevMode {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := util.WaitForServer(ctx, url+"/api/status", 200*time.Millisecond); err != nil {
				log.WithError(err).Warn("服务未就绪，跳过打开浏览器")
				return
			}
			if err := util.OpenBrowserWithFallback(url); err != nil {
				log.Infof("无法自动打开浏览器，请手动访问: %s", url)
			}
		}()
	} else {
		log.Infof("开发模式: 请访问 %s", url)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-quit:
	}

	log.Info("正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runImport(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error {
		c := importer.NewCoordinator(st, cfg.Business)
		view, err := c.UploadFile(ctx, args[0], func(e importer.ProgressEvent) {
			config.GetLogger().WithField("type", e.Type).Debug(e.Message)
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		d := view.Dashboard
		fmt.Fprintf(out, "batch      : %s\n", view.BatchID)
		fmt.Fprintf(out, "baris      : %d (dilewati %d)\n", len(view.Table.Rows), view.Skipped)
		fmt.Fprintf(out, "total usaha: %d\n", d.TotalBusinesses)
		fmt.Fprintf(out, "patuh      : %d%%\n", d.CompliancePercent)
		fmt.Fprintf(out, "total omset: %.0f\n", d.TotalRevenue)
		fmt.Fprintf(out, "anomali    : %d\n", d.AnomalyCount)
		return nil
	})
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error {
		batches, err := importer.NewHistory(st, cfg.Business).List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tFILE\tWAKTU\tBARIS")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", b.BatchID, b.Filename, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.RecordCount)
		}
		return w.Flush()
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error {
		n, err := importer.NewHistory(st, cfg.Business).Delete(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d baris dihapus\n", n)
		return nil
	})
}

func runHistoryPurge(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error {
		n, err := importer.NewHistory(st, cfg.Business).Purge(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d baris dihapus\n", n)
		return nil
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, cfg *config.AppConfig, st *store.Store) error {
		log := config.GetLogger()
		f, filename, err := importer.NewHistory(st, cfg.Business).Export(ctx, args[0], nil)
		if err != nil {
			return err
		}
		defer f.Close()

		target := outputPath
		if target == "" {
			base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
			if base == "" || base == "." {
				base = args[0]
			}
			target = "hasil_" + base + ".xlsx"
		}
		if err := f.SaveAs(target); err != nil {
			return fmt.Errorf("保存导出文件失败: %w", err)
		}
		log.WithFields(logrus.Fields{"batch_id": args[0], "output": target}).Info("导出完成")
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	})
}
