// Package storage提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"context"
	"course-advisor-go/internal/config"
	"course-advisor-go/pkg/log"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确认课程目录所在的存储桶存在。
// 目录是只读数据，存储桶不存在时直接失败而不是自动创建。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := MinioClient.BucketExists(context.Background(), cfg.BucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}
	if !exists {
		log.Fatalf("存储桶 '%s' 不存在", cfg.BucketName)
	}
	log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
}

// OpenObject 打开一个对象用于读取，调用方负责关闭。
func OpenObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	if MinioClient == nil {
		return nil, fmt.Errorf("minio client not initialized")
	}
	obj, err := MinioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucketName, objectName, err)
	}
	// GetObject 是惰性的，Stat 才会真正访问服务端
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, fmt.Errorf("stat object %s/%s: %w", bucketName, objectName, err)
	}
	return obj, nil
}
