package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  rufus 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	fmt.Printf("✅ Go版本: %s\n", runtime.Version())
	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 浏览器渲染需要本地Chromium,找不到时rod会在首次使用时下载
	if path, ok := launcher.LookPath(); ok {
		fmt.Printf("✅ 浏览器: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到本地Chromium - 首次动态抓取时将自动下载")
		fmt.Println("   或使用 --mode static 仅进行静态抓取")
	}

	// 大模型评分
	if _, err := os.Stat(".env"); err == nil {
		fmt.Println("✅ .env文件存在")
	} else {
		fmt.Println("⚠️  .env文件不存在 - API密钥需通过环境变量提供")
	}
	if os.Getenv("RUFUS_SCORING_LLM_API_KEY") != "" || os.Getenv("OPENAI_API_KEY") != "" {
		fmt.Println("✅ 已配置LLM API密钥")
	} else {
		fmt.Println("⚠️  未配置LLM API密钥 - --llm 评分不可用,默认离线评分不受影响")
	}

	fmt.Println()
	fmt.Println("检查Go模块依赖...")
	if _, err := os.Stat("go.mod"); err == nil {
		fmt.Println("✅ go.mod文件存在")

		fmt.Println("正在下载依赖...")
		cmd := exec.Command("go", "mod", "download")
		if err := cmd.Run(); err != nil {
			fmt.Printf("❌ go mod download失败: %v\n", err)
			allOK = false
		} else {
			fmt.Println("✅ 依赖下载完成")
		}
	} else {
		fmt.Println("❌ go.mod文件不存在")
		allOK = false
	}

	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredDirs := []string{
		"cmd/rufus",
		"internal/core",
		"internal/crawlers",
		"internal/scoring",
		"internal/synthesizer",
		"internal/utils",
		"internal/models",
	}
	for _, dir := range requiredDirs {
		if _, err := os.Stat(dir); err == nil {
			fmt.Printf("✅ %s/\n", dir)
		} else {
			fmt.Printf("❌ %s/ 不存在\n", dir)
			allOK = false
		}
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go run ./cmd/rufus init' 生成配置文件")
		fmt.Println("  2. 运行 'go build -o rufus ./cmd/rufus' 构建项目")
		fmt.Println("  3. 运行 './rufus --help' 查看帮助")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}
