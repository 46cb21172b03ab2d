package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/mediavault-backend/internal/http/response"
	"github.com/yungbote/mediavault-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediavault-backend/internal/platform/logger"
	"github.com/yungbote/mediavault-backend/internal/services"
	"github.com/yungbote/mediavault-backend/internal/types"
)

const (
	formFieldFile  = "file"
	formFieldFiles = "files"

	defaultRecentLimit = 10
)

type DownloadPayload struct {
	DownloadURL string `json:"download_url"`
	FileName    string `json:"filename"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
}

type UploadHandler struct {
	log     *logger.Logger
	uploads services.UploadService
	catalog services.AssetCatalog
	broker  *services.AccessBroker
}

func NewUploadHandler(
	log *logger.Logger,
	uploads services.UploadService,
	catalog services.AssetCatalog,
	broker *services.AccessBroker,
) *UploadHandler {
	return &UploadHandler{
		log:     log.With("handler", "UploadHandler"),
		uploads: uploads,
		catalog: catalog,
		broker:  broker,
	}
}

// POST /api/uploads
func (h *UploadHandler) UploadSingle(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	if err := h.uploads.Ready(); err != nil {
		response.RespondError(c, err)
		return
	}
	fh, err := c.FormFile(formFieldFile)
	if err != nil || fh == nil {
		response.RespondError(c, services.ValidationError("no file uploaded"))
		return
	}
	asset, err := h.uploads.ProcessFile(c.Request.Context(), fileInput(fh), businessID, sharedMetadata(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out, err := h.broker.Present(c.Request.Context(), asset)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, out)
}

// POST /api/uploads/multiple
func (h *UploadHandler) UploadMultiple(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	if err := h.uploads.Ready(); err != nil {
		response.RespondError(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil || form == nil || len(form.File[formFieldFiles]) == 0 {
		response.RespondError(c, services.ValidationError("no files uploaded"))
		return
	}
	headers := form.File[formFieldFiles]
	if max := h.uploads.MaxBatchFiles(); len(headers) > max {
		response.RespondError(c, services.ValidationError("too many files: %d (max %d)", len(headers), max))
		return
	}

	inputs := make([]services.FileInput, 0, len(headers))
	for _, fh := range headers {
		inputs = append(inputs, fileInput(fh))
	}
	result := h.uploads.ProcessBatch(c.Request.Context(), inputs, businessID, sharedMetadata(c))
	for i := range result.Results {
		if result.Results[i].Asset == nil {
			continue
		}
		presented, err := h.broker.Present(c.Request.Context(), result.Results[i].Asset)
		if err != nil {
			h.log.Warn("Failed to resolve url for batch entry", "asset_id", result.Results[i].Asset.ID, "error", err)
			result.Results[i].Asset = withoutURLs(result.Results[i].Asset)
			result.Results[i].Error = "url unavailable"
			continue
		}
		result.Results[i].Asset = presented
	}
	response.RespondCreated(c, result)
}

// GET /api/uploads
func (h *UploadHandler) List(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	filter, err := assetFilter(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	list, err := h.catalog.ListByOwner(c.Request.Context(), businessID, filter, pageFromQuery(c))
	h.respondList(c, list, err)
}

// GET /api/uploads/public
func (h *UploadHandler) ListPublic(c *gin.Context) {
	filter, err := assetFilter(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	list, err := h.catalog.ListPublic(c.Request.Context(), filter, pageFromQuery(c))
	h.respondList(c, list, err)
}

// GET /api/uploads/search?q=
func (h *UploadHandler) Search(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	filter, err := assetFilter(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	query := c.Query("q")
	if query == "" {
		query = c.Query("query")
	}
	list, err := h.catalog.Search(c.Request.Context(), businessID, query, filter, pageFromQuery(c))
	h.respondList(c, list, err)
}

// GET /api/uploads/recent
func (h *UploadHandler) Recent(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	limit := queryInt(c, "limit", defaultRecentLimit)
	rows, err := h.catalog.Recent(c.Request.Context(), businessID, limit)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out, err := h.broker.PresentAll(c.Request.Context(), rows)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/uploads/stats
func (h *UploadHandler) Stats(c *gin.Context) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return
	}
	stats, err := h.catalog.Stats(c.Request.Context(), businessID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/uploads/:id
func (h *UploadHandler) Get(c *gin.Context) {
	businessID, id, ok := requireBusinessAndID(c)
	if !ok {
		return
	}
	asset, err := h.catalog.GetForOwner(c.Request.Context(), id, businessID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.respondAsset(c, asset)
}

// PUT /api/uploads/:id
func (h *UploadHandler) Update(c *gin.Context) {
	businessID, id, ok := requireBusinessAndID(c)
	if !ok {
		return
	}
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, services.ValidationError("invalid request body: %v", err))
		return
	}
	asset, err := h.uploads.UpdateAsset(c.Request.Context(), id, businessID, services.PatchFromMap(body))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.respondAsset(c, asset)
}

// DELETE /api/uploads/:id
func (h *UploadHandler) Delete(c *gin.Context) {
	businessID, id, ok := requireBusinessAndID(c)
	if !ok {
		return
	}
	asset, err := h.uploads.DeleteAsset(c.Request.Context(), id, businessID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"id": asset.ID, "deleted": true})
}

// GET /api/uploads/:id/view
func (h *UploadHandler) View(c *gin.Context) {
	businessID, id, ok := requireBusinessAndID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.catalog.GetAccessible(ctx, id, businessID); err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.catalog.IncrementView(ctx, id); err != nil {
		response.RespondError(c, err)
		return
	}
	asset, err := h.catalog.Get(ctx, id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.respondAsset(c, asset)
}

// GET /api/uploads/:id/download
func (h *UploadHandler) Download(c *gin.Context) {
	businessID, id, ok := requireBusinessAndID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	asset, err := h.catalog.GetAccessible(ctx, id, businessID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.catalog.IncrementDownload(ctx, id); err != nil {
		response.RespondError(c, err)
		return
	}
	url, err := h.broker.DownloadURL(ctx, asset)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, DownloadPayload{
		DownloadURL: url,
		FileName:    asset.OriginalName,
		FileSize:    asset.SizeBytes,
		MimeType:    asset.MimeType,
	})
}

func (h *UploadHandler) respondAsset(c *gin.Context, asset *types.Asset) {
	out, err := h.broker.Present(c.Request.Context(), asset)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, out)
}

func (h *UploadHandler) respondList(c *gin.Context, list *types.AssetList, err error) {
	if err != nil {
		response.RespondError(c, err)
		return
	}
	presented, err := h.broker.PresentAll(c.Request.Context(), list.Assets)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	list.Assets = presented
	response.RespondOK(c, list)
}

// withoutURLs copies asset with every stored link removed, for entries whose
// servable URL could not be resolved.
func withoutURLs(asset *types.Asset) *types.Asset {
	out := *asset
	out.URL = ""
	out.ThumbnailURL = nil
	return &out
}

func requireBusiness(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.BusinessID == uuid.Nil {
		response.RespondStatus(c, http.StatusUnauthorized, "unauthorized", "missing business context")
		return uuid.Nil, false
	}
	return rd.BusinessID, true
}

func requireBusinessAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	businessID, ok := requireBusiness(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, services.ValidationError("invalid asset id"))
		return uuid.Nil, uuid.Nil, false
	}
	return businessID, id, true
}

func fileInput(fh *multipart.FileHeader) services.FileInput {
	return services.FileInput{
		Name:     fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Size:     fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// sharedMetadata reads the optional form fields. tags and metadata are JSON
// strings; malformed values become empty rather than failing the request.
func sharedMetadata(c *gin.Context) services.SharedMetadata {
	return services.SharedMetadata{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Tags:        services.ParseTags(c.PostForm("tags")),
		IsPublic:    strings.EqualFold(strings.TrimSpace(c.PostForm("is_public")), "true"),
		Metadata:    services.ParseMetadata(c.PostForm("metadata")),
	}
}

func assetFilter(c *gin.Context) (types.AssetFilter, error) {
	var f types.AssetFilter
	if raw := strings.ToLower(strings.TrimSpace(c.Query("file_type"))); raw != "" {
		f.Kind = types.AssetKind(raw)
	} else if raw := strings.ToLower(strings.TrimSpace(c.Query("kind"))); raw != "" {
		f.Kind = types.AssetKind(raw)
	}
	switch f.Kind {
	case "", types.AssetKindVideo, types.AssetKindImage, types.AssetKindAudio, types.AssetKindOther:
	default:
		return f, services.ValidationError("invalid file_type %q", f.Kind)
	}
	if raw := strings.TrimSpace(c.Query("is_public")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, services.ValidationError("invalid is_public %q", raw)
		}
		f.IsPublic = &b
	}
	return f, nil
}

func pageFromQuery(c *gin.Context) types.Page {
	return types.Page{
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 20),
	}.Normalize()
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
