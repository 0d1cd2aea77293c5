// @title Scrap CTF API
// @version 1.0
// @description CTF 比赛后端：题库同步、flag 提交与排行榜。

// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"scrap_ctf/internal/app"
	"scrap_ctf/internal/config"
	"scrap_ctf/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件目录")
	loadOnly := flag.Bool("load-only", false, "只同步一次题库，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.LoadOnly = *loadOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *loadOnly {
		log.Println("题库同步完成，退出程序")
		return
	}

	application.Run()
}
