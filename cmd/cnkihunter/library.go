package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"CNKIHunter/internal/models"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "管理本地文獻庫",
	Long: `library 查看、統計、刪除和檢索用 search --save 存入的記錄。
所有子命令都接受同一組過濾條件。`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出记录",
	RunE: func(cmd *cobra.Command, args []string) error {
		cond, err := conditionFromFlags(cmd)
		if err != nil {
			return err
		}
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		records, total, err := app.ListRecords(context.Background(), cond)
		if err != nil {
			return err
		}
		printRecords(records, nil)
		fmt.Printf("\n共 %d 条，显示 %d 条\n", total, len(records))
		return nil
	},
}

var libraryCountCmd = &cobra.Command{
	Use:   "count",
	Short: "统计记录数",
	RunE: func(cmd *cobra.Command, args []string) error {
		cond, err := conditionFromFlags(cmd)
		if err != nil {
			return err
		}
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.CountRecords(context.Background(), cond)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var libraryDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "删除记录",
	RunE: func(cmd *cobra.Command, args []string) error {
		cond, err := conditionFromFlags(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		if isEmpty(cond) && !all {
			return fmt.Errorf("没有过滤条件，如需清空文献库请加 --all")
		}
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		n, err := app.DeleteRecords(context.Background(), cond)
		if err != nil {
			return err
		}
		fmt.Printf("已删除 %d 条记录\n", n)
		return nil
	},
}

var librarySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "按相关度检索本地记录（BM25）",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cond, err := conditionFromFlags(cmd)
		if err != nil {
			return err
		}
		// 排序在全部候选上进行
		cond.Limit, cond.Offset = 0, 0
		top, _ := cmd.Flags().GetInt("top")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		hits, err := app.SearchLibrary(context.Background(), strings.Join(args, " "), cond, top)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("没有匹配的记录")
			return nil
		}
		records := make([]*models.Record, len(hits))
		scores := make([]float64, len(hits))
		for i, h := range hits {
			records[i], scores[i] = h.Record, h.Score
		}
		printRecords(records, scores)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{libraryListCmd, libraryCountCmd, libraryDeleteCmd, librarySearchCmd} {
		addConditionFlags(c)
		libraryCmd.AddCommand(c)
	}
	libraryDeleteCmd.Flags().Bool("all", false, "允许无条件删除全部记录")
	librarySearchCmd.Flags().Int("top", 10, "返回前 N 条")

	rootCmd.AddCommand(libraryCmd)
}

// addConditionFlags 文献库过滤条件，library/export/download 共用
func addConditionFlags(c *cobra.Command) {
	c.Flags().String("keyword", "", "入库时使用的检索词")
	c.Flags().StringSlice("database", nil, "来源数据库，可多次指定，如 期刊,碩士")
	c.Flags().String("from", "", "发表时间下限 YYYY-MM-DD")
	c.Flags().String("to", "", "发表时间上限 YYYY-MM-DD")
	c.Flags().Int("limit", 0, "最多返回条数，0 表示不限")
	c.Flags().Int("offset", 0, "跳过前 N 条")
}

func conditionFromFlags(c *cobra.Command) (models.RecordCondition, error) {
	var cond models.RecordCondition
	cond.Keyword, _ = c.Flags().GetString("keyword")
	cond.Databases, _ = c.Flags().GetStringSlice("database")
	cond.Limit, _ = c.Flags().GetInt("limit")
	cond.Offset, _ = c.Flags().GetInt("offset")

	for _, f := range []struct {
		name string
		dst  **time.Time
	}{{"from", &cond.DateFrom}, {"to", &cond.DateTo}} {
		s, _ := c.Flags().GetString(f.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(models.DateLayout, s)
		if err != nil {
			return cond, fmt.Errorf("--%s 日期格式应为 YYYY-MM-DD: %w", f.name, err)
		}
		*f.dst = &t
	}
	return cond, nil
}

func isEmpty(cond models.RecordCondition) bool {
	return cond.Keyword == "" && len(cond.Databases) == 0 && cond.DateFrom == nil && cond.DateTo == nil
}

func printRecords(records []*models.Record, scores []float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if scores != nil {
		fmt.Fprintln(w, "得分\t發表時間\t數據庫\t題名\t作者\t來源")
	} else {
		fmt.Fprintln(w, "序號\t發表時間\t數據庫\t題名\t作者\t來源")
	}
	for i, r := range records {
		lead := fmt.Sprint(i + 1)
		if scores != nil {
			lead = fmt.Sprintf("%.3f", scores[i])
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", lead, r.DateString(), r.Database, truncate(r.Title, 40), truncate(r.Author, 16), r.Source)
	}
	w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
