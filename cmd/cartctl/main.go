package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fireguard-store/storefront/internal/cache"
	"github.com/fireguard-store/storefront/internal/cart"
	"github.com/fireguard-store/storefront/internal/config"
	"github.com/fireguard-store/storefront/internal/constants"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/models"
	"github.com/fireguard-store/storefront/internal/provider"
	"github.com/fireguard-store/storefront/internal/storage"
)

const usage = `用法: cartctl <inspect|migrate|clear> [-session <id>] [-key <slot key>]

  inspect  读取槽位并输出解析后的购物车与原始格式
  migrate  将旧版数组格式改写为 {"items": [...]}
  clear    写入空购物车`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	sessionID := fs.String("session", "", "购物车会话 id")
	key := fs.String("key", "", "槽位 key（缺省为 storage.key）")
	timeout := fs.Duration("timeout", 10*time.Second, "操作超时")
	_ = fs.Parse(os.Args[2:])

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	slot, err := openSlot(cfg)
	if err != nil {
		stdLog.Fatalf("槽位初始化失败: %v", err)
	}
	slotKey := strings.TrimSpace(*key)
	if slotKey == "" {
		slotKey = strings.TrimSpace(cfg.Storage.Key)
	}
	if slotKey == "" {
		slotKey = constants.DefaultCartStorageKey
	}
	slotKey = storage.SessionKey(*sessionID, slotKey)
	store := cart.NewStore(slot, cart.StoreOptions{Key: slotKey, Logger: logger.Named("cartctl")})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "inspect":
		err = inspect(ctx, store)
	case "migrate":
		var migrated bool
		migrated, err = cart.MigrateLegacy(ctx, store)
		if err == nil {
			fmt.Printf("key=%s migrated=%v\n", slotKey, migrated)
		}
	case "clear":
		err = store.Write(ctx, models.CartState{Items: []models.CartLineItem{}})
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		stdLog.Fatalf("%s 失败: %v", command, err)
	}
}

func openSlot(cfg *config.Config) (cart.Slot, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case constants.StorageDriverRedis:
		if err := cache.InitRedis(&cfg.Redis); err != nil {
			return nil, err
		}
	case constants.StorageDriverSQL:
		if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
			MaxOpenConns: cfg.Database.Pool.MaxOpenConns,
			MaxIdleConns: cfg.Database.Pool.MaxIdleConns,
		}); err != nil {
			return nil, err
		}
	}
	return provider.NewSlot(cfg.Storage)
}

func inspect(ctx context.Context, store *cart.Store) error {
	state, shape, err := store.Read(ctx)
	if err != nil {
		return err
	}
	out := map[string]interface{}{
		"key":   store.Key(),
		"shape": shape,
	}
	if state != nil {
		out["items"] = state.Items
		out["totals"] = state.Totals()
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
