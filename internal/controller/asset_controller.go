package controller

import (
	"errors"
	"fmt"
	"net/http"

	"scrap_ctf/internal/service"
	"scrap_ctf/internal/util"

	"github.com/gin-gonic/gin"
)

type AssetController struct {
	Assets service.AssetStore
}

func NewAssetController(assets service.AssetStore) *AssetController {
	return &AssetController{Assets: assets}
}

// Download godoc
// @Summary 下载题目附件
// @Tags 题目
// @Produce  octet-stream
// @Param   hash path string true "内容哈希"
// @Param   name path string true "文件名"
// @Success 200 {file} file "附件内容"
// @Failure 404 {object} util.Response "附件不存在"
// @Router /static/files/{hash}/{name} [get]
func (c *AssetController) Download(ctx *gin.Context) {
	hash, name := ctx.Param("hash"), ctx.Param("name")

	rc, size, err := c.Assets.Open(ctx.Request.Context(), hash, name)
	if err != nil {
		if errors.Is(err, service.ErrAssetNotFound) || errors.Is(err, service.ErrInvalidAsset) {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	defer rc.Close()

	// 内容按哈希寻址，可长期缓存
	ctx.DataFromReader(http.StatusOK, size, "application/octet-stream", rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
		"Cache-Control":       "public, max-age=31536000, immutable",
	})
}
