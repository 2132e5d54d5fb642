// auditctl 审计运维工具
//
// 用途(都是排障场景,日常运行不需要):
//   - cursor show/reset  查看/清除续跑游标
//   - lock release       强制释放运行锁(实例崩溃后TTL未到时)
//   - snapshot get       查看某商品的库存快照
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/xiebiao/stockwatch/internal/infrastructure/config"
	"github.com/xiebiao/stockwatch/internal/infrastructure/persistence/redis"
)

func main() {
	root := &cobra.Command{
		Use:          "auditctl",
		Short:        "库存审计引擎运维工具",
		SilenceUsage: true,
	}

	root.AddCommand(cursorCmd(), lockCmd(), snapshotCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newContext 运维命令统一超时
func newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func cursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "续跑游标管理",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "查看当前游标",
		RunE: func(*cobra.Command, []string) error {
			cfg, client, err := connect()
			if err != nil {
				return err
			}
			ctx, cancel := newContext()
			defer cancel()

			sinceID, err := redis.NewCursorStore(client, cfg.Audit.CursorTTL).Get(ctx)
			if err != nil {
				return err
			}
			if sinceID == 0 {
				fmt.Println("无游标(下一轮从目录头开始)")
			} else {
				fmt.Printf("since_id = %d\n", sinceID)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "清除游标(下一轮从头扫描)",
		RunE: func(*cobra.Command, []string) error {
			cfg, client, err := connect()
			if err != nil {
				return err
			}
			ctx, cancel := newContext()
			defer cancel()

			if err := redis.NewCursorStore(client, cfg.Audit.CursorTTL).Clear(ctx); err != nil {
				return err
			}
			fmt.Println("游标已清除")
			return nil
		},
	})

	return cmd
}

func lockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "运行锁管理",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "release",
		Short: "强制释放运行锁(仅实例崩溃后使用,运行中释放会导致并发审计)",
		RunE: func(*cobra.Command, []string) error {
			cfg, client, err := connect()
			if err != nil {
				return err
			}
			ctx, cancel := newContext()
			defer cancel()

			if err := redis.NewRunLock(client, cfg.Audit.LockTTL).ForceRelease(ctx); err != nil {
				return err
			}
			fmt.Println("运行锁已强制释放")
			return nil
		},
	})

	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "库存快照查询",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <product-id>",
		Short: "查看商品的上一轮可售总量快照",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			productID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("无效的商品ID: %s", args[0])
			}

			cfg, client, err := connect()
			if err != nil {
				return err
			}
			ctx, cancel := newContext()
			defer cancel()

			qty, found, err := redis.NewSnapshotStore(client, cfg.Audit.SnapshotTTL).Get(ctx, productID)
			if err != nil {
				return err
			}
			if !found {
				fmt.Printf("商品%d无快照(尚未审计过或已过期)\n", productID)
				return nil
			}
			fmt.Printf("商品%d快照可售总量 = %d\n", productID, qty)
			return nil
		},
	})

	return cmd
}

// connect 加载配置并建立Redis连接
func connect() (*config.Config, *goredis.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}
