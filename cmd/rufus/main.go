package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/rufus/internal/core"
	"github.com/RecoveryAshes/rufus/internal/models"
	"github.com/RecoveryAshes/rufus/internal/synthesizer"
	"github.com/RecoveryAshes/rufus/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string
	validateConfig bool

	// 抓取参数
	targetURL    string
	urlFile      string
	instructions string
	maxPages     int
	minRelevance float64
	maxDepth     int
	waitTime     int
	mode         string
	maxWorkers   int
	headless     bool
	crossDomain  bool
	useLLM       bool
	showProgress bool

	// 输出参数
	format string
	output string
	noSave bool

	// init参数
	forceInit bool
)

// appConfig 由PersistentPreRunE加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "rufus",
	Short: "目标导向的网页抓取工具",
	Long: `Rufus - 目标导向的网页抓取工具

从起始URL出发,按自然语言描述的抓取目标对页面评分:
  • 广度优先抓取,只展开相关度达到阈值的页面
  • 出链按 相关度/(1+深度) 排序
  • 静态抓取优先,脚本渲染页面自动切换浏览器
  • 按内容去重后输出 json / markdown / text
  • 支持多个起始URL并发抓取

示例:
  rufus -u https://example.edu -i "本科招生截止日期和申请要求"
  rufus -f urls.txt -i "financial aid deadlines" --format markdown -o results
  rufus -u https://example.edu -i "admissions" -o s3://crawl-results/runs
  rufus init configs/config.yaml

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env 中的API密钥与MinIO凭据,文件不存在时忽略
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("加载.env失败: %w", err)
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		} else if verbose {
			logConfig.Level = "debug"
		}
		logConfig.Quiet = showProgress

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}

		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}

		if err := ValidateFlags(targetURL, urlFile, instructions, maxPages, minRelevance, maxDepth, waitTime, maxWorkers, mode, format); err != nil {
			return err
		}

		overrides := core.CLIOverrides{
			MaxPages:         maxPages,
			MaxDepth:         maxDepth,
			MaxWorkers:       maxWorkers,
			Mode:             mode,
			WaitTime:         waitTime,
			AllowCrossDomain: crossDomain,
			Format:           format,
			Target:           output,
			UseLLM:           useLLM,
		}
		if cmd.Flags().Changed("headless") {
			overrides.Headless = &headless
		}
		if cmd.Flags().Changed("min-relevance") {
			overrides.MinRelevance = &minRelevance
		}
		appConfig.MergeCLIFlags(overrides)
		appConfig.Crawl.ShowProgress = showProgress
		if appConfig.Scoring.LLM.APIKey == "" {
			appConfig.Scoring.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if err := appConfig.Validate(); err != nil {
			return err
		}

		// Ctrl+C 取消抓取,已接受的页面仍会输出
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := core.NewClient(appConfig, core.WithHeaders(headers))
		if err != nil {
			return err
		}
		defer client.Close()

		var docs []models.Document
		if urlFile != "" {
			urls, err := utils.ReadURLsFromFile(urlFile)
			if err != nil {
				return fmt.Errorf("读取URL文件失败: %w", err)
			}
			summary, err := client.ScrapeMultiple(ctx, urls, instructions, core.ScrapeOptions{})
			if summary == nil {
				return fmt.Errorf("批量抓取失败: %w", err)
			}
			if err != nil {
				utils.Warnf("批量抓取被中断: %v", err)
			}
			docs = summary.Documents()
		} else {
			url, err := NormalizeURL(targetURL)
			if err != nil {
				return fmt.Errorf("无效的目标URL: %w", err)
			}
			docs, err = client.Scrape(ctx, url, instructions, core.ScrapeOptions{})
			if docs == nil {
				return fmt.Errorf("抓取失败: %w", err)
			}
			if err != nil {
				utils.Warnf("抓取被中断: %v", err)
			}
		}

		return writeResults(client, docs)
	},
}

// writeResults 输出文档; --no-save 时写到标准输出
func writeResults(client *core.Client, docs []models.Document) error {
	if noSave {
		f, err := models.ParseOutputFormat(appConfig.Output.Format)
		if err != nil {
			return err
		}
		data, err := synthesizer.Render(docs, f)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	// 保存不跟随中断信号,保证已抓取的结果落盘
	location, err := client.Save(context.Background(), docs, appConfig.Output.Format)
	if err != nil {
		return err
	}
	utils.Infof("✨ 抓取完成: %d 个文档 -> %s", len(docs), location)
	return nil
}

// runValidateConfig 验证配置与HTTP头部并输出脱敏后的头部
func runValidateConfig() error {
	utils.Info("🔍 验证配置...")
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	headerManager, err := core.NewHeaderManager(appConfig.Fetch.Headers, appConfig.Fetch.UserAgent, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("HTTP头部验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rufus %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "生成默认配置文件",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := core.WriteDefaultConfig(path, forceInit); err != nil {
			return err
		}
		utils.Infof("✅ 已生成配置文件: %s", path)
		return nil
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	// 抓取参数
	rootCmd.Flags().StringVarP(&targetURL, "url", "u", "", "起始URL (必需,除非使用 --url-file)")
	rootCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	rootCmd.Flags().StringVarP(&instructions, "instructions", "i", "", "抓取目标描述 (必需)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "页面预算 (默认取配置,100)")
	rootCmd.Flags().Float64Var(&minRelevance, "min-relevance", 0, "相关度阈值 0.0-1.0 (默认取配置,0.7; 离线评分时建议0.5左右)")
	rootCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "最大深度,0表示不限制")
	rootCmd.Flags().IntVarP(&waitTime, "wait", "w", 0, "请求超时/页面等待时间(秒)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "抓取模式 (auto|static|dynamic)")
	rootCmd.Flags().IntVar(&maxWorkers, "threads", 0, "多URL并发数")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().BoolVar(&crossDomain, "cross-domain", false, "允许抓取其他站点的链接")
	rootCmd.Flags().BoolVar(&useLLM, "llm", false, "使用大模型评分 (需要API密钥)")
	rootCmd.Flags().BoolVar(&showProgress, "progress", false, "显示进度条 (控制台不输出日志)")

	// 输出参数
	rootCmd.Flags().StringVar(&format, "format", "", "输出格式 (json|markdown|text)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "输出目录或 s3://bucket/prefix")
	rootCmd.Flags().BoolVar(&noSave, "no-save", false, "不保存文件,结果写到标准输出")

	initCmd.Flags().BoolVar(&forceInit, "force", false, "覆盖已存在的配置文件")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
