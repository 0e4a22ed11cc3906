package sitenotice_sdk

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/cydxin/sitenotice-sdk/response"
	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 公告（管理端）相关接口 --------------------
// 都应挂在 AdminOnlyMiddleware 之后；service 层还会再做一次管理员校验，
// 授权失败发生在任何写操作之前。

func noticeIDParam(ctx *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "invalid notice id"))
		return 0, false
	}
	return id, true
}

// writeAdminError 管理端错误要可操作：校验失败带原因，权限/不存在单独区分。
func writeAdminError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoticeNotFound):
		ctx.JSON(http.StatusOK, response.Error(response.CodeNoticeNotFound, "notice not found"))
	case errors.Is(err, service.ErrPermissionDenied):
		ctx.JSON(http.StatusForbidden, response.Error(response.CodePermissionDeny, "admin capability required"))
	default:
		// 校验错误信息由 service 层产生，对管理员可见
		ctx.JSON(http.StatusOK, response.Error(response.CodeParamError, err.Error()))
	}
}

// GinHandleListAllNotices 公告管理列表
// @Summary 公告管理列表
// @Tags 公告管理
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.notices"
// @Security BearerAuth
// @Router /admin/notice/list [get]
func (e *NoticeEngine) GinHandleListAllNotices(ctx *gin.Context) {
	notices, err := e.NoticeService.ListAll(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to list notices"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"notices": notices}))
}

// GinHandleGetNotice 查看单条公告
// @Summary 查看公告
// @Tags 公告管理
// @Produce json
// @Param id path int true "公告 ID"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.notice"
// @Security BearerAuth
// @Router /admin/notice/{id} [get]
func (e *NoticeEngine) GinHandleGetNotice(ctx *gin.Context) {
	id, ok := noticeIDParam(ctx)
	if !ok {
		return
	}
	notice, err := e.NoticeService.Get(ctx.Request.Context(), id)
	if err != nil {
		writeAdminError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"notice": notice}))
}

// GinHandleCreateNotice 创建公告
// @Summary 创建公告
// @Tags 公告管理
// @Accept json
// @Produce json
// @Param req body service.CreateNoticeInput true "公告字段"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.notice"
// @Security BearerAuth
// @Router /admin/notice [post]
func (e *NoticeEngine) GinHandleCreateNotice(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var in service.CreateNoticeInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	notice, err := e.NoticeService.Create(ctx.Request.Context(), uid, in)
	if err != nil {
		writeAdminError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"notice": notice}))
}

// GinHandleUpdateNotice 编辑公告（整体替换；既有用户交互记录随之过期）
// @Summary 编辑公告
// @Tags 公告管理
// @Accept json
// @Produce json
// @Param id path int true "公告 ID"
// @Param req body service.UpdateNoticeInput true "公告字段"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.notice"
// @Security BearerAuth
// @Router /admin/notice/{id} [put]
func (e *NoticeEngine) GinHandleUpdateNotice(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := noticeIDParam(ctx)
	if !ok {
		return
	}

	var in service.UpdateNoticeInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	notice, err := e.NoticeService.Update(ctx.Request.Context(), uid, id, in)
	if err != nil {
		writeAdminError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"notice": notice}))
}

// GinHandleResetNotice 重置公告（所有用户重新展示）
// @Summary 重置公告
// @Tags 公告管理
// @Produce json
// @Param id path int true "公告 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/notice/{id}/reset [post]
func (e *NoticeEngine) GinHandleResetNotice(ctx *gin.Context) {
	e.adminNoticeAction(ctx, e.NoticeService.Reset)
}

// GinHandleEnableNotice 启用公告
// @Summary 启用公告
// @Tags 公告管理
// @Produce json
// @Param id path int true "公告 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/notice/{id}/enable [post]
func (e *NoticeEngine) GinHandleEnableNotice(ctx *gin.Context) {
	e.adminNoticeAction(ctx, e.NoticeService.Enable)
}

// GinHandleDisableNotice 停用公告
// @Summary 停用公告
// @Tags 公告管理
// @Produce json
// @Param id path int true "公告 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/notice/{id}/disable [post]
func (e *NoticeEngine) GinHandleDisableNotice(ctx *gin.Context) {
	e.adminNoticeAction(ctx, e.NoticeService.Disable)
}

// GinHandleDeleteNotice 删除公告（交互记录/链接同事务清理，审计保留）
// @Summary 删除公告
// @Tags 公告管理
// @Produce json
// @Param id path int true "公告 ID"
// @Success 200 {object} response.Response
// @Security BearerAuth
// @Router /admin/notice/{id} [delete]
func (e *NoticeEngine) GinHandleDeleteNotice(ctx *gin.Context) {
	e.adminNoticeAction(ctx, e.NoticeService.Delete)
}

func (e *NoticeEngine) adminNoticeAction(ctx *gin.Context, action func(ctx context.Context, actorID, noticeID uint64) error) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}
	id, ok := noticeIDParam(ctx)
	if !ok {
		return
	}
	if err := action(ctx.Request.Context(), uid, id); err != nil {
		writeAdminError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, response.Success(nil))
}
