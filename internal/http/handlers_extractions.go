package http

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"gradex/internal/model"
	"gradex/internal/services"
)

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Success: false, Code: code, Error: msg,
	})
}

// svcError maps a service error onto the HTTP surface. Validation
// failures default to 400; handlers that owe a 422 pass it in.
func svcError(c *fiber.Ctx, err error, validationStatus int) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Success: false, Code: "NOT_FOUND", Error: err.Error(),
		})
	case errors.Is(err, services.ErrValidation):
		return c.Status(validationStatus).JSON(ErrorResponse{
			Success: false, Code: "VALIDATION_FAILED", Error: err.Error(),
		})
	case errors.Is(err, services.ErrScrapeFailed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Success: false, Code: "SCRAPE_FAILED", Error: err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false, Code: "INTERNAL_ERROR", Error: err.Error(),
		})
	}
}

func validResultURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func identifySubjectsHandler(c *fiber.Ctx) error {
	batchID, err := c.ParamsInt("batch_id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}

	var req IdentifySubjectsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}
	if !validResultURL(req.ResultURL) {
		return badRequest(c, "BAD_REQUEST", "result_url is not a valid http url")
	}

	svc := c.Locals("subjectService").(services.SubjectService)
	subjects, err := svc.Identify(c.Context(), int64(batchID), req.ResultURL, req.USN)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(subjects)
}

func addSubjectsHandler(c *fiber.Ctx) error {
	batchID, err := c.ParamsInt("batch_id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "batch_id must be an integer")
	}

	var payload []SubjectPayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, "BAD_REQUEST_INVALID_JSON", "Bad request, malformed JSON")
	}

	subjects := make([]model.Subject, 0, len(payload))
	for _, p := range payload {
		subjects = append(subjects, model.Subject{
			SubCode: p.SubCode,
			SubName: p.SubName,
			Credits: p.Credits,
		})
	}

	svc := c.Locals("subjectService").(services.SubjectService)
	created, err := svc.Add(c.Context(), int64(batchID), subjects)
	if err != nil {
		// A zero-credit entry is a semantic failure, not a malformed request.
		return svcError(c, err, fiber.StatusUnprocessableEntity)
	}
	return c.JSON(created)
}

func startScraperHandler(c *fiber.Ctx) error {
	sectionID, err := c.ParamsInt("section_id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "section_id must be an integer")
	}
	resultURL := c.Query("result_url")
	if !validResultURL(resultURL) {
		return badRequest(c, "BAD_REQUEST", "result_url is not a valid http url")
	}

	svc := c.Locals("extractionService").(services.ExtractionService)
	res, err := svc.Start(c.Context(), int64(sectionID), resultURL)
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest)
	}

	return c.JSON(StartScrapeResponse{
		Message:             "extraction started",
		ExtractionID:        res.Extraction.ExtractionID,
		ExtractionInvalidID: res.Invalid.InvalidID,
		StartUSN:            res.StartUSN,
		EndUSN:              res.EndUSN,
		NumberUSNs:          res.NumberUSNs,
	})
}

func getExtractionHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}

	svc := c.Locals("extractionService").(services.ExtractionService)
	ext, err := svc.Get(c.Context(), int64(id))
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(ext)
}

func getExtractionInvalidHandler(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "id must be an integer")
	}

	svc := c.Locals("extractionService").(services.ExtractionService)
	inv, err := svc.GetInvalid(c.Context(), int64(id))
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(inv)
}

func listExtractionsHandler(c *fiber.Ctx) error {
	sectionID, err := c.ParamsInt("section_id")
	if err != nil {
		return badRequest(c, "BAD_REQUEST", "section_id must be an integer")
	}

	svc := c.Locals("extractionService").(services.ExtractionService)
	exts, err := svc.ListBySection(c.Context(), int64(sectionID))
	if err != nil {
		return svcError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(exts)
}
