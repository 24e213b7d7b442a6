package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	ResultHash   string `json:"result_hash,omitempty"`
}

func main() {
	var (
		serverAddr   string
		format       string
		outPath      string
		pollInterval time.Duration
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.StringVar(&format, "format", "text", "Result format: text, json or xlsx")
	flag.StringVar(&outPath, "out", "", "Write the result to a file instead of stdout")
	flag.DurationVar(&pollInterval, "poll", 2*time.Second, "Task status polling interval")
	flag.Parse()

	filePaths := flag.Args()
	if len(filePaths) == 0 {
		log.Fatal("At least one file path is required. Usage: client [flags] <result.json> [more.json ...]")
	}
	if format == "xlsx" && outPath == "" {
		log.Fatal("Формат xlsx требует флага -out")
	}

	body, contentType, err := buildUpload(filePaths)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(serverAddr+"/api/v1/process", contentType, body)
	if err != nil {
		log.Fatalf("Не удалось отправить запрос: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("Сервер вернул статус: %d", resp.StatusCode)
	}

	var taskResp map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&taskResp); err != nil {
		log.Fatalf("Не удалось декодировать ответ: %v", err)
	}
	taskID := taskResp["task_id"]
	if taskID == "" {
		log.Fatal("Идентификатор задачи не найден в ответе")
	}

	fmt.Fprintf(os.Stderr, "Задача создана с идентификатором: %s\n", taskID)

	status, err := waitForTask(serverAddr, taskID, pollInterval)
	if err != nil {
		log.Fatal(err)
	}
	if status.Status == "failed" {
		fmt.Fprintf(os.Stderr, "Задача не выполнена: %s\n", status.ErrorMessage)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Задача выполнена, хеш результата: %s\n", status.ResultHash)

	result, err := fetchResult(serverAddr, taskID, format)
	if err != nil {
		log.Fatal(err)
	}

	if outPath == "" {
		os.Stdout.Write(result)
		return
	}
	if err := os.WriteFile(outPath, result, 0644); err != nil {
		log.Fatalf("Не удалось записать результат в %s: %v", outPath, err)
	}
	fmt.Fprintf(os.Stderr, "Результат записан в %s\n", outPath)
}

// buildUpload собирает multipart-форму со всеми файлами
func buildUpload(filePaths []string) (io.Reader, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, path := range filePaths {
		file, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("не удалось открыть файл %s: %w", path, err)
		}

		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		file.Close()
		if err != nil {
			return nil, "", fmt.Errorf("не удалось записать данные файла %s: %w", path, err)
		}
	}

	// Закрытие writer записывает завершающую границу
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("не удалось закрыть multipart writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

// waitForTask опрашивает статус задачи, пока она не завершится
func waitForTask(serverAddr, taskID string, interval time.Duration) (*TaskStatusResponse, error) {
	for {
		time.Sleep(interval)

		status, err := getStatus(serverAddr, taskID)
		if err != nil {
			return nil, err
		}

		fmt.Fprintf(os.Stderr, "Статус задачи: %s\n", status.Status)

		switch status.Status {
		case "completed", "failed":
			return status, nil
		case "pending", "processing":
			continue
		default:
			return nil, fmt.Errorf("неизвестный статус задачи: %s", status.Status)
		}
	}
}

func getStatus(serverAddr, taskID string) (*TaskStatusResponse, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/tasks/%s", serverAddr, url.PathEscape(taskID)))
	if err != nil {
		return nil, fmt.Errorf("не удалось опросить статус задачи: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	var statusResp TaskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return nil, fmt.Errorf("не удалось декодировать ответ статуса: %w", err)
	}
	return &statusResp, nil
}

func fetchResult(serverAddr, taskID, format string) ([]byte, error) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/tasks/%s/result?format=%s", serverAddr, url.PathEscape(taskID), url.QueryEscape(format)))
	if err != nil {
		return nil, fmt.Errorf("не удалось получить результат: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("сервер вернул статус для результата: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать тело результата: %w", err)
	}
	return data, nil
}
