package v1

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"audio_transcription/entity"
	"audio_transcription/pkg/logger"
)

const audioField = "audio"

const defaultMultipartMemory = 32 << 20

type transcriptionRoutes struct {
	tu         entity.TranscriptionUsecase
	l          logger.Interface
	modelLabel string
	maxUpload  int64
}

func newTranscriptionRoutes(handler *gin.RouterGroup, tu entity.TranscriptionUsecase, l logger.Interface, opts RouterOptions) {
	r := &transcriptionRoutes{tu, l, opts.ModelLabel, opts.MaxUploadBytes}

	handler.GET("/", r.status)
	handler.GET("/health", r.health)
	handler.POST("/transcribe", r.transcribe)
}

// @Summary     Service status
// @Description Static service banner
// @ID          status
// @Tags  	    status
// @Produce     json
// @Success     200 {object} entity.StatusResponse
// @Router      / [get]
func (r *transcriptionRoutes) status(c *gin.Context) {
	c.JSON(http.StatusOK, entity.StatusResponse{
		Message: "Audio Transcription API",
		Status:  "active",
		Model:   r.modelLabel,
	})
}

// @Summary     Health check
// @Description Reports whether the model finished loading
// @ID          health
// @Tags  	    status
// @Produce     json
// @Success     200 {object} entity.HealthResponse
// @Router      /health [get]
func (r *transcriptionRoutes) health(c *gin.Context) {
	c.JSON(http.StatusOK, entity.HealthResponse{
		Status:      "healthy",
		ModelLoaded: r.tu.ModelLoaded(),
	})
}

// @Summary     Transcribe audio
// @Description Transcribes the uploaded audio file to text
// @ID          transcribe
// @Tags  	    transcription
// @Accept      multipart/form-data
// @Produce     json
// @Param       audio formData file true "Audio file"
// @Success     200 {object} entity.TranscribeResponse
// @Failure     500 {object} response
// @Router      /transcribe [post]
func (r *transcriptionRoutes) transcribe(c *gin.Context) {
	ctx, span := otel.Tracer(traceName).Start(c.Request.Context(), "transcribe-api")
	defer span.End()

	if r.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxUpload)
	}

	audio, closeFn, err := uploadedAudio(c)
	if err != nil {
		r.l.Error("http - v1 - transcribe: %v", err)
		errorResponse(c, http.StatusInternalServerError, "failed to transcribe audio: "+err.Error())
		return
	}
	defer closeFn()

	res, err := r.tu.Transcribe(ctx, audio)
	if err != nil {
		r.l.Error("http - v1 - transcribe: %v", err)
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	var filename *string
	if audio.Filename != "" {
		filename = &audio.Filename
	}

	c.JSON(http.StatusOK, entity.TranscribeResponse{
		Success:       true,
		Text:          res.Text,
		Transcription: res.Text,
		Language:      res.Language,
		Filename:      filename,
	})
}

// uploadedAudio extracts the "audio" part. A part sent without a filename
// is accepted too; its content then arrives as a plain form value.
func uploadedAudio(c *gin.Context) (entity.UploadedAudio, func(), error) {
	if err := c.Request.ParseMultipartForm(defaultMultipartMemory); err != nil {
		return entity.UploadedAudio{}, nil, err
	}

	form := c.Request.MultipartForm
	if files := form.File[audioField]; len(files) > 0 {
		return openPart(files[0])
	}

	if values := form.Value[audioField]; len(values) > 0 {
		return entity.UploadedAudio{Body: strings.NewReader(values[0])}, func() {}, nil
	}

	return entity.UploadedAudio{}, nil, errors.New("missing form field \"audio\"")
}

func openPart(fh *multipart.FileHeader) (entity.UploadedAudio, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return entity.UploadedAudio{}, nil, err
	}

	return entity.UploadedAudio{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, func() { f.Close() }, nil
}
