// printmes-admin 运维工具：初始化内置数据、创建用户。
//
// 用法:
//
//	printmes-admin seed          初始化内置工序目录与角色组
//	printmes-admin create-user   创建用户并分组
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bitfantasy/printmes/internal/config"
	"github.com/bitfantasy/printmes/internal/workorder/repository"
	"github.com/bitfantasy/printmes/internal/workorder/service"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, nil, service.NopPublisher{}, cfg, logger)
	ctx := context.Background()

	switch os.Args[1] {
	case "seed":
		if err := service.SeedCatalog(ctx, repos, logger); err != nil {
			logger.Fatal("Seed process catalog failed", zap.Error(err))
		}
		if err := service.SeedGroups(ctx, repos, logger); err != nil {
			logger.Fatal("Seed groups failed", zap.Error(err))
		}
		logger.Info("Seed completed")

	case "create-user":
		fs := flag.NewFlagSet("create-user", flag.ExitOnError)
		username := fs.String("username", "", "登录名")
		name := fs.String("name", "", "显示名")
		password := fs.String("password", "", "初始密码")
		group := fs.String("group", "salesperson", "角色组 (salesperson|admin)")
		fs.Parse(os.Args[2:])

		if *username == "" || *password == "" {
			fs.Usage()
			os.Exit(2)
		}
		if *name == "" {
			*name = *username
		}

		user, err := services.Auth.CreateUser(ctx, *username, *name, *password)
		if err != nil {
			logger.Fatal("Create user failed", zap.Error(err))
		}

		g, err := repos.User.FindGroupByName(ctx, *group)
		if err != nil {
			logger.Fatal("Group not found, run seed first", zap.String("group", *group), zap.Error(err))
		}
		if err := repos.User.AddUserToGroup(ctx, user.ID, g.ID); err != nil {
			logger.Fatal("Add user to group failed", zap.Error(err))
		}

		logger.Info("User created",
			zap.String("id", user.ID),
			zap.String("username", user.Username),
			zap.String("group", *group))

	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: printmes-admin <seed|create-user> [options]")
}
