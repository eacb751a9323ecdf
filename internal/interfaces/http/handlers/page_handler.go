package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/experiment"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/frame"
	"github.com/turtacn/COF-H2-Predictor/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/COF-H2-Predictor/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page titles.
const (
	TitlePredictor    = "COF-H2 Predictor Platform"
	TitleOptimization = "Page 2: Optimization"
	TitlePlaceholder  = "Page 3: Placeholder"
)

// MsgModelLoad prefixes artifact failures shown on the form.
const MsgModelLoad = "Error loading model or scalers: "

var templateFuncs = template.FuncMap{
	"num": func(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) },
}

// formValues is the state of the predictor form.
type formValues struct {
	SMILES       string
	CoCatalyst   string
	SED          string
	CatalystMg   float64
	CoCatalystWt float64
}

// Value returns a numeric field by column name.
func (f formValues) Value(column string) float64 {
	if column == experiment.ColumnCoCatalystWt {
		return f.CoCatalystWt
	}
	return f.CatalystMg
}

func (f formValues) params() experiment.Params {
	return experiment.Params{
		CatalystMg:   f.CatalystMg,
		CoCatalystWt: f.CoCatalystWt,
		CoCatalyst:   f.CoCatalyst,
		SED:          f.SED,
	}
}

type pageView struct {
	Title string
	Page  string
}

type predictorView struct {
	pageView
	Schema      *prediction.Schema
	Form        formValues
	Summary     [][2]string
	Submitted   bool
	Descriptors *frame.Table
	Parameters  *frame.Table
	Input       *frame.Table
	Predictions []float64
	Unit        string
	Messages    []string
	Error       string
}

// PageHandler renders the server-side pages.
type PageHandler struct {
	svc       prediction.Service
	logger    logging.Logger
	templates map[string]*template.Template
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(svc prediction.Service, logger logging.Logger) (*PageHandler, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	h := &PageHandler{svc: svc, logger: logger, templates: map[string]*template.Template{}}
	for _, page := range []string{"predictor.html", "info.html"} {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "parse page templates")
		}
		h.templates[page] = t
	}
	return h, nil
}

// Predictor handles GET / and GET /predictor.
func (h *PageHandler) Predictor(w http.ResponseWriter, r *http.Request) {
	defaults := experiment.DefaultParams()
	form := formValues{
		CoCatalyst:   defaults.CoCatalyst,
		SED:          defaults.SED,
		CatalystMg:   defaults.CatalystMg,
		CoCatalystWt: defaults.CoCatalystWt,
	}
	h.render(w, "predictor.html", h.predictorView(r, form))
}

// Submit handles POST /predictor: descriptors, parameter row, combined row
// and prediction, in the order the page shows them.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form, formErr := parseForm(r)
	view := h.predictorView(r, form)
	view.Submitted = true
	ctx := r.Context()

	switch {
	case formErr != nil:
		view.Error = userMessage(formErr)
	case strings.TrimSpace(form.SMILES) == "":
		view.Messages = append(view.Messages, prediction.MsgEnterSMILES, prediction.MsgDescriptorsRequired)
	default:
		desc, err := h.svc.Descriptors(ctx, form.SMILES)
		if err != nil {
			view.Error = userMessage(err)
			break
		}
		view.Descriptors = desc.Table
		if row, err := form.params().Row(); err == nil {
			view.Parameters = row
			view.Input = row
			if desc.Valid {
				if combined, err := frame.HConcat(row, desc.Table); err == nil {
					view.Input = combined
				}
			}
		}
		if !desc.Valid {
			view.Messages = append(view.Messages, prediction.MsgDescriptorsRequired)
			break
		}

		res, err := h.svc.Predict(ctx, &prediction.PredictInput{
			SMILES:      form.SMILES,
			Params:      form.params(),
			Descriptors: desc.Table,
		})
		if err != nil {
			view.Error = pageError(err)
			h.logger.Warn("form prediction failed", logging.String("smiles", form.SMILES), logging.Err(err))
			break
		}
		view.Parameters, view.Input = res.Parameters, res.Input
		view.Predictions, view.Unit = res.Predictions, res.Unit
	}
	h.render(w, "predictor.html", view)
}

// Optimization handles GET /optimization.
func (h *PageHandler) Optimization(w http.ResponseWriter, r *http.Request) {
	h.render(w, "info.html", pageView{Title: TitleOptimization, Page: "optimization"})
}

// Placeholder handles GET /placeholder.
func (h *PageHandler) Placeholder(w http.ResponseWriter, r *http.Request) {
	h.render(w, "info.html", pageView{Title: TitlePlaceholder, Page: "placeholder"})
}

func (h *PageHandler) predictorView(r *http.Request, form formValues) *predictorView {
	return &predictorView{
		pageView: pageView{Title: TitlePredictor, Page: "predictor"},
		Schema:   h.svc.Schema(r.Context()),
		Form:     form,
		Summary:  form.params().Summary(),
	}
}

func (h *PageHandler) render(w http.ResponseWriter, page string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("render page failed", logging.String("page", page), logging.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// parseForm reads the predictor form. Choices are normalised to column
// names so the selects keep their state.
func parseForm(r *http.Request) (formValues, error) {
	form := formValues{
		SMILES:     strings.TrimSpace(r.PostFormValue("smiles")),
		CoCatalyst: r.PostFormValue("cocat"),
		SED:        r.PostFormValue("sed"),
	}
	if o, ok := experiment.LookupCoCatalyst(form.CoCatalyst); ok {
		form.CoCatalyst = o.Column
	}
	if o, ok := experiment.LookupSED(form.SED); ok {
		form.SED = o.Column
	}
	var err error
	if form.CatalystMg, err = parseNumber(r, experiment.ColumnCatalystMg); err != nil {
		return form, err
	}
	if form.CoCatalystWt, err = parseNumber(r, experiment.ColumnCoCatalystWt); err != nil {
		return form, err
	}
	return form, form.params().Validate()
}

func parseNumber(r *http.Request, field string) (float64, error) {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return experiment.DefaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return experiment.DefaultValue, errors.Newf(errors.CodeInvalidParam, "%s must be a number", field)
	}
	return v, nil
}

// pageError phrases artifact failures the way the form always has.
func pageError(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeModelArtifactLoadFailed, errors.ErrCodeModelArtifactNotFound, errors.ErrCodeModelUnsupported:
		return MsgModelLoad + userMessage(err)
	}
	return userMessage(err)
}

//Personal.AI order the ending
