package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/admin"
	"ltgsite/internal/api/middleware"
)

// AdminHandler exposes the per-tab form controller over HTTP.
type AdminHandler struct {
	sessions *admin.Sessions
	logger   *slog.Logger
}

func NewAdminHandler(sessions *admin.Sessions, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{sessions: sessions, logger: logger}
}

type formResponse struct {
	View    admin.View      `json:"view"`
	List    *admin.ListView `json:"list,omitempty"`
	Notices []admin.Notice  `json:"notices"`
}

// confirmFrom reads the user's answer from ?confirm=true.
func confirmFrom(c *gin.Context) admin.Confirmer {
	ok, _ := strconv.ParseBool(c.Query("confirm"))
	return admin.Answer(ok)
}

func (h *AdminHandler) session(c *gin.Context) (*admin.Session, bool) {
	return h.sessions.Get(middleware.TabID(c))
}

func (h *AdminHandler) respond(c *gin.Context, sess *admin.Session, list *admin.ListView) {
	c.JSON(http.StatusOK, formResponse{
		View:    sess.Controller.View(),
		List:    list,
		Notices: sess.Toasts.Active(),
	})
}

func (h *AdminHandler) fail(c *gin.Context, err error) {
	middleware.LoggerOr(c, h.logger).Info("admin action failed", slog.Any("error", err))
	RespondError(c, err)
}

// GetForm returns the form. The first request of a tab runs the page load:
// draft recovery and the initial list.
func (h *AdminHandler) GetForm(c *gin.Context) {
	sess, created := h.session(c)
	if created {
		list := sess.Controller.Load(c.Request.Context())
		h.respond(c, sess, &list)
		return
	}
	h.respond(c, sess, nil)
}

// PatchForm applies field changes, e.g. {"location": "kw", "published": true}.
func (h *AdminHandler) PatchForm(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "invalid body")
		return
	}
	values := make(map[admin.Field]string, len(body))
	for k, v := range body {
		if v == nil {
			values[admin.Field(k)] = ""
			continue
		}
		values[admin.Field(k)] = fmt.Sprint(v)
	}

	sess, _ := h.session(c)
	if err := sess.Controller.ChangeAll(values); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, sess, nil)
}

// SaveForm creates or updates the posting being edited.
func (h *AdminHandler) SaveForm(c *gin.Context) {
	sess, _ := h.session(c)
	if err := sess.Controller.Save(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	list := sess.Controller.RenderList(c.Request.Context())
	h.respond(c, sess, &list)
}

// ResetForm discards the form, asking first when it is dirty.
func (h *AdminHandler) ResetForm(c *gin.Context) {
	sess, _ := h.session(c)
	if err := sess.Controller.Reset(c.Request.Context(), confirmFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, sess, nil)
}

// EditJob loads posting :id into the form.
func (h *AdminHandler) EditJob(c *gin.Context) {
	sess, _ := h.session(c)
	if err := sess.Controller.Edit(c.Request.Context(), c.Param("id"), confirmFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, sess, nil)
}

// ListJobs renders the admin list. Fetch failures come back as an inline
// message, not as an error status.
func (h *AdminHandler) ListJobs(c *gin.Context) {
	sess, _ := h.session(c)
	list := sess.Controller.RenderList(c.Request.Context())
	h.respond(c, sess, &list)
}

type toggleRequest struct {
	Published bool `json:"published"`
}

// TogglePublished flips the published flag of :id. The body carries the
// current value as shown in the list.
func (h *AdminHandler) TogglePublished(c *gin.Context) {
	var req toggleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid body")
			return
		}
	}

	sess, _ := h.session(c)
	err := sess.Controller.TogglePublished(c.Request.Context(), c.Param("id"), req.Published, confirmFrom(c))
	list := sess.Controller.RenderList(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, sess, &list)
}

// DeleteJob removes :id after confirmation.
func (h *AdminHandler) DeleteJob(c *gin.Context) {
	sess, _ := h.session(c)
	if err := sess.Controller.Delete(c.Request.Context(), c.Param("id"), confirmFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	list := sess.Controller.RenderList(c.Request.Context())
	h.respond(c, sess, &list)
}

// ExportJobs downloads every posting as jobs.json.
func (h *AdminHandler) ExportJobs(c *gin.Context) {
	sess, _ := h.session(c)
	out, err := sess.Controller.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+admin.ExportFileName+`"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}
