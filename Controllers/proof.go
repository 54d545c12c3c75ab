package Controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
)

const proofDir = "uploads/proofs"

// SubmitPhotoProof accepts a multipart photo, stores it with a thumbnail and
// submits the task with the file paths as proof data.
func (c *TaskController) SubmitPhotoProof(ctx *fiber.Ctx) error {
	user, ok := currentUser(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not logged in"})
	}
	id, err := taskID(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task ID"})
	}

	file, err := ctx.FormFile("photo")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No photo provided"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Photo must be a JPEG or PNG"})
	}

	if err := os.MkdirAll(proofDir, 0755); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store photo"})
	}

	name := fmt.Sprintf("task_%d_%s%s", id, time.Now().Format("20060102_150405"), ext)
	photoPath := filepath.Join(proofDir, name)
	if err := ctx.SaveFile(file, photoPath); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store photo"})
	}

	thumbPath, err := makeThumbnail(photoPath)
	if err != nil {
		// Thumbnail is presentation sugar; submit with the original only
		thumbPath = ""
	}

	proof := map[string]interface{}{
		"type": "photo",
		"file": photoPath,
	}
	if thumbPath != "" {
		proof["thumbnail"] = thumbPath
	}

	task, err := c.Machine.Submit(id, user.ID, proof)
	if err != nil {
		return engineError(ctx, err)
	}
	return ctx.JSON(task)
}

func makeThumbnail(photoPath string) (string, error) {
	img, err := imaging.Open(photoPath)
	if err != nil {
		return "", err
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)

	ext := filepath.Ext(photoPath)
	thumbPath := strings.TrimSuffix(photoPath, ext) + "_thumb" + ext
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", err
	}
	return thumbPath, nil
}
