package sitenotice_sdk

import (
	"net/http"
	"strconv"

	"github.com/cydxin/sitenotice-sdk/response"
	"github.com/cydxin/sitenotice-sdk/service"
	"github.com/gin-gonic/gin"
)

// -------------------- 报表（管理端）相关接口 --------------------

func bindReportFilter(ctx *gin.Context) (service.ReportFilter, bool) {
	var f service.ReportFilter
	if err := ctx.ShouldBindQuery(&f); err != nil {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, err.Error()))
		return f, false
	}
	return f, true
}

// GinHandleAckReport 确认记录报表
// @Summary 确认记录报表
// @Tags 报表
// @Produce json
// @Param notice_id query uint64 false "按公告过滤"
// @Param user_id query uint64 false "按用户过滤"
// @Param from query int false "开始时间(epoch 秒)"
// @Param to query int false "结束时间(epoch 秒)"
// @Param limit query int false "条数(默认50,最大200)"
// @Param offset query int false "偏移"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.items"
// @Security BearerAuth
// @Router /admin/report/ack [get]
func (e *NoticeEngine) GinHandleAckReport(ctx *gin.Context) {
	f, ok := bindReportFilter(ctx)
	if !ok {
		return
	}
	items, err := e.ReportService.Acknowledgements(f)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to load report"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"items": items}))
}

// GinHandleDismissReport “该确认却只关闭”记录报表
// @Summary 关闭记录报表
// @Tags 报表
// @Produce json
// @Param notice_id query uint64 false "按公告过滤"
// @Param user_id query uint64 false "按用户过滤"
// @Param from query int false "开始时间(epoch 秒)"
// @Param to query int false "结束时间(epoch 秒)"
// @Param limit query int false "条数(默认50,最大200)"
// @Param offset query int false "偏移"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.items"
// @Security BearerAuth
// @Router /admin/report/dismiss [get]
func (e *NoticeEngine) GinHandleDismissReport(ctx *gin.Context) {
	f, ok := bindReportFilter(ctx)
	if !ok {
		return
	}
	items, err := e.ReportService.Dismissals(f)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to load report"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"items": items}))
}

// GinHandleLinkClickReport 用户在某公告上的链接点击聚合
// @Summary 链接点击报表
// @Tags 报表
// @Produce json
// @Param user_id query uint64 true "用户 ID"
// @Param notice_id query uint64 true "公告 ID"
// @Success 200 {object} response.Response{data=map[string]interface{}} "data.items"
// @Security BearerAuth
// @Router /admin/report/linkclicks [get]
func (e *NoticeEngine) GinHandleLinkClickReport(ctx *gin.Context) {
	userID, err1 := strconv.ParseUint(ctx.Query("user_id"), 10, 64)
	noticeID, err2 := strconv.ParseUint(ctx.Query("notice_id"), 10, 64)
	if err1 != nil || err2 != nil || userID == 0 || noticeID == 0 {
		ctx.JSON(http.StatusBadRequest, response.Error(response.CodeParamError, "user_id and notice_id are required"))
		return
	}

	items, err := e.ReportService.LinkClicks(userID, noticeID)
	if err != nil {
		ctx.JSON(http.StatusOK, response.Error(response.CodeInternalError, "failed to load report"))
		return
	}
	ctx.JSON(http.StatusOK, response.Success(map[string]any{"items": items}))
}
