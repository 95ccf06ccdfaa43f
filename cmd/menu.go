package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyerfyer/ko-doc-search/internal/index"
	"github.com/fyerfyer/ko-doc-search/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// menuResults 菜单检索固定返回的条数
const menuResults = 10

// menuService 交互菜单需要的检索能力
type menuService interface {
	IndexFile(ctx context.Context, filePath string) (*services.IndexResult, error)
	Search(ctx context.Context, query string, limit int, fileName string) ([]index.Hit, error)
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive index and search loop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		return runMenu(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), interactive, app.search)
	},
}

// runMenu 读取菜单选择直到选择退出或输入结束
// interactive为false时不输出菜单和提示，便于脚本管道输入
func runMenu(ctx context.Context, in io.Reader, out io.Writer, interactive bool, svc menuService) error {
	scanner := bufio.NewScanner(in)
	prompt := func(format string, args ...interface{}) {
		if interactive {
			fmt.Fprintf(out, format, args...)
		}
	}
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	prompt("=== Korean Document Search ===\n")
	prompt("Index documents and search them by keyword.\n")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		prompt("\n=== Menu ===\n1. Index File\n2. Perform Search\n3. Exit\nSelect (1-3): ")
		choice, ok := readLine()
		if !ok {
			return scanner.Err()
		}

		switch choice {
		case "1":
			prompt("Enter file path: ")
			path, ok := readLine()
			if !ok {
				return scanner.Err()
			}
			menuIndex(ctx, out, svc, path)
		case "2":
			prompt("Enter search query: ")
			query, ok := readLine()
			if !ok {
				return scanner.Err()
			}
			menuSearch(ctx, out, svc, query)
		case "3":
			fmt.Fprintln(out, "Exiting program.")
			return nil
		default:
			fmt.Fprintln(out, "Invalid selection. Please try again.")
		}
	}
}

func menuIndex(ctx context.Context, out io.Writer, svc menuService, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(out, "File not found: %s\n", path)
		return
	}

	fmt.Fprintln(out, "Indexing file...")
	res, err := svc.IndexFile(ctx, path)
	if err != nil {
		fmt.Fprintf(out, "Error occurred during indexing: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Indexing completed! %d pages, %d chunks\n", res.PageCount, res.ChunkCount)
}

func menuSearch(ctx context.Context, out io.Writer, svc menuService, query string) {
	if query == "" {
		fmt.Fprintln(out, "Please enter a search query.")
		return
	}

	fmt.Fprintln(out, "Searching...")
	hits, err := svc.Search(ctx, query, menuResults, "")
	if err != nil {
		fmt.Fprintf(out, "Error occurred during search: %v\n", err)
		return
	}
	printResults(out, hits)
}
