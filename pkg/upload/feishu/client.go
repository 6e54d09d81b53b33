// Package feishu 把检索结果表格上传为飞书多维表格。
package feishu

import (
	"context"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkbitable "github.com/larksuite/oapi-sdk-go/v3/service/bitable/v1"

	"CNKIHunter/pkg/logger"
)

const (
	// 单次 BatchCreate 上限
	batchSize = 500
	tableName = "檢索結果"
	// 多维表格的文本字段
	fieldTypeText = 1
)

// bitableAPI 多维表格的三个写操作，测试中替换为内存实现
type bitableAPI interface {
	CreateApp(ctx context.Context, name, folderToken string) (appToken, url string, err error)
	CreateTable(ctx context.Context, appToken, name string, headers []string) (tableID string, err error)
	BatchCreate(ctx context.Context, appToken, tableID string, records []*larkbitable.AppTableRecord) error
}

type Client struct {
	FileName    string
	FolderToken string
	api         bitableAPI
	log         *logger.Logger
}

// NewClient 创建飞书客户端，tenant access token 由 SDK 获取并缓存
func NewClient(appID, appSecret, fileName, folderToken string, opts ...lark.ClientOptionFunc) *Client {
	return &Client{
		FileName:    fileName,
		FolderToken: folderToken,
		api:         &larkAPI{client: lark.NewClient(appID, appSecret, opts...)},
		log:         logger.WithPrefix("FeiShu"),
	}
}

// UploadRows 第一行为表头，其余为数据；返回新建多维表格的地址
func (c *Client) UploadRows(ctx context.Context, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("没有可上传的表头")
	}
	headers, data := rows[0], rows[1:]
	c.log.Info("共 %d 列，%d 行数据", len(headers), len(data))

	appToken, url, err := c.api.CreateApp(ctx, c.FileName, c.FolderToken)
	if err != nil {
		return "", fmt.Errorf("创建多维表格失败: %w", err)
	}
	tableID, err := c.api.CreateTable(ctx, appToken, tableName, headers)
	if err != nil {
		return "", fmt.Errorf("创建数据表失败: %w", err)
	}

	records := ToBitableRecords(headers, data)
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := c.api.BatchCreate(ctx, appToken, tableID, records[i:end]); err != nil {
			return "", fmt.Errorf("添加第 %d-%d 行失败: %w", i+1, end, err)
		}
	}
	return url, nil
}

// ToBitableRecords 按表头把每行转为字段映射，空单元格不写入
func ToBitableRecords(headers []string, rows [][]string) []*larkbitable.AppTableRecord {
	records := make([]*larkbitable.AppTableRecord, len(rows))
	for i, row := range rows {
		fields := make(map[string]interface{}, len(headers))
		for j, header := range headers {
			if j < len(row) && row[j] != "" {
				fields[header] = row[j]
			}
		}
		records[i] = larkbitable.NewAppTableRecordBuilder().
			Fields(fields).
			Build()
	}
	return records
}

type larkAPI struct {
	client *lark.Client
}

func (l *larkAPI) CreateApp(ctx context.Context, name, folderToken string) (string, string, error) {
	req := larkbitable.NewCreateAppReqBuilder().
		ReqApp(larkbitable.NewReqAppBuilder().
			Name(name).
			FolderToken(folderToken).
			Build()).
		Build()

	resp, err := l.client.Bitable.V1.App.Create(ctx, req)
	if err != nil {
		return "", "", err
	}
	if !resp.Success() {
		return "", "", fmt.Errorf("logId=%s, error=%s", resp.RequestId(), larkcore.Prettify(resp.CodeError))
	}
	if resp.Data == nil || resp.Data.App == nil || resp.Data.App.AppToken == nil {
		return "", "", fmt.Errorf("appToken is nil")
	}

	url := ""
	if resp.Data.App.Url != nil {
		url = *resp.Data.App.Url
	}
	return *resp.Data.App.AppToken, url, nil
}

func (l *larkAPI) CreateTable(ctx context.Context, appToken, name string, headers []string) (string, error) {
	fields := make([]*larkbitable.AppTableCreateHeader, len(headers))
	for i, header := range headers {
		fields[i] = larkbitable.NewAppTableCreateHeaderBuilder().
			FieldName(header).
			Type(fieldTypeText).
			Build()
	}

	req := larkbitable.NewCreateAppTableReqBuilder().
		AppToken(appToken).
		Body(larkbitable.NewCreateAppTableReqBodyBuilder().
			Table(larkbitable.NewReqTableBuilder().
				Name(name).
				DefaultViewName("默认视图").
				Fields(fields).
				Build()).
			Build()).
		Build()

	resp, err := l.client.Bitable.V1.AppTable.Create(ctx, req)
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", fmt.Errorf("logId=%s, error=%s", resp.RequestId(), larkcore.Prettify(resp.CodeError))
	}
	if resp.Data == nil || resp.Data.TableId == nil {
		return "", fmt.Errorf("tableId is nil")
	}
	return *resp.Data.TableId, nil
}

func (l *larkAPI) BatchCreate(ctx context.Context, appToken, tableID string, records []*larkbitable.AppTableRecord) error {
	req := larkbitable.NewBatchCreateAppTableRecordReqBuilder().
		AppToken(appToken).
		TableId(tableID).
		Body(larkbitable.NewBatchCreateAppTableRecordReqBodyBuilder().
			Records(records).
			Build()).
		Build()

	resp, err := l.client.Bitable.V1.AppTableRecord.BatchCreate(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("logId=%s, error=%s", resp.RequestId(), larkcore.Prettify(resp.CodeError))
	}
	return nil
}
