package sitenotice_sdk

import (
	"errors"
	"net/http"
	"time"

	"github.com/cydxin/sitenotice-sdk/response"
	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 公告（用户侧）相关接口 --------------------

func currentUserID(ctx *gin.Context) (uint64, bool) {
	uidAny, exists := ctx.Get("user_id")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, response.Error(response.CodeTokenInvalid, "user_id not found"))
		return 0, false
	}
	return uidAny.(uint64), true
}

// GinHandleListNotices 拉取当前用户还欠展示的公告（按创建顺序，前端逐条弹模态框）
// @Summary 拉取待展示公告
// @Tags 公告
// @Accept json
// @Produce json
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.status + data.notices"
// @Security BearerAuth
// @Router /notice/list [get]
func (e *NoticeEngine) GinHandleListNotices(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	notices, err := e.EligibilityService.NoticesFor(ctx.Request.Context(), uid, time.Now())
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to load notices"))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{
		"status":  true,
		"notices": notices,
	}))
}

type NoticeActionReq struct {
	NoticeID uint64 `json:"notice_id" binding:"required"`
}

// GinHandleDismissNotice 关闭公告
// @Summary 关闭公告
// @Tags 公告
// @Accept json
// @Produce json
// @Param req body NoticeActionReq true "请求参数"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.status + data.redirecturl(需要下线时)"
// @Security BearerAuth
// @Router /notice/dismiss [post]
func (e *NoticeEngine) GinHandleDismissNotice(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req NoticeActionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	res, err := e.InteractionService.Dismiss(ctx.Request.Context(), req.NoticeID, uid)
	if err != nil {
		writeInteractionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(interactionPayload(res)))
}

// GinHandleAcknowledgeNotice 确认公告
// @Summary 确认公告
// @Tags 公告
// @Accept json
// @Produce json
// @Param req body NoticeActionReq true "请求参数"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.status + data.redirecturl(需要下线时)"
// @Security BearerAuth
// @Router /notice/ack [post]
func (e *NoticeEngine) GinHandleAcknowledgeNotice(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req NoticeActionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	res, err := e.InteractionService.Acknowledge(ctx.Request.Context(), req.NoticeID, uid)
	if err != nil {
		writeInteractionError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, response.Success(interactionPayload(res)))
}

type TrackLinkReq struct {
	LinkID uint64 `json:"link_id" binding:"required"`
}

// GinHandleTrackLink 上报公告内容链接点击
// @Summary 上报链接点击
// @Tags 公告
// @Accept json
// @Produce json
// @Param req body TrackLinkReq true "请求参数"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.status"
// @Security BearerAuth
// @Router /notice/track [post]
func (e *NoticeEngine) GinHandleTrackLink(ctx *gin.Context) {
	uid, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req TrackLinkReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return
	}

	if err := e.LinkService.TrackLink(ctx.Request.Context(), req.LinkID, uid); err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			// 无效 linkid 按 no-op 处理
			ctx.JSON(http.StatusOK, response.Error(response.CodeNoticeNotFound, "link not found"))
			return
		}
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to track link"))
		return
	}

	ctx.JSON(http.StatusOK, response.Success(map[string]any{"status": true}))
}

func interactionPayload(res *service.InteractionResult) map[string]any {
	payload := map[string]any{"status": res.Success}
	if res.RequiresLogout {
		payload["redirecturl"] = res.RedirectURL
	}
	return payload
}

// writeInteractionError 用户侧失败不暴露内部细节，NotFound 按 no-op 处理。
func writeInteractionError(ctx *gin.Context, err error) {
	if errors.Is(err, service.ErrNoticeNotFound) {
		ctx.JSON(http.StatusOK, response.Error(response.CodeNoticeNotFound, "notice not found"))
		return
	}
	ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "operation failed"))
}
