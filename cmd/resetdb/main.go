// Command resetdb wipes transactions, payments and departments on a development
// database. Staff accounts are kept so approval can be exercised again.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"studentpay-backend/internal/config"
	"studentpay-backend/internal/db"
)

var resetStatements = []string{
	"TRUNCATE transactions RESTART IDENTITY",
	"DELETE FROM payments",
	"DELETE FROM departments WHERE NOT is_staff",
	"SELECT setval(pg_get_serial_sequence('payments', 'id'), 1, false)",
}

func main() {
	force := flag.Bool("yes", false, "skip the confirmation prompt")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	fmt.Println("Reset database for testing")
	fmt.Printf("Target: %s@%s:%d/%s\n", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	fmt.Println("This deletes every transaction, payment and non-staff department.")

	if !*force {
		fmt.Print("Type 'yes' to confirm: ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(answer) != "yes" {
			fmt.Println("Reset cancelled.")
			return
		}
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin failed: %v", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range resetStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			log.Fatalf("%s: %v", stmt, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit failed: %v", err)
	}

	fmt.Println("Database reset complete.")
}
