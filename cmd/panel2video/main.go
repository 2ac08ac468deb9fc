package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ivlev/panel2video/internal/bubble"
	"github.com/ivlev/panel2video/internal/engine"
	"github.com/ivlev/panel2video/internal/job"
	"github.com/ivlev/panel2video/internal/source"
	"github.com/ivlev/panel2video/internal/system"
	"github.com/ivlev/panel2video/internal/video"
)

func main() {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[!] Не удалось прочитать .env: %v", err)
	}

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits(nil)

	// Создаем нужные директории, если их нет
	for _, d := range []string{job.JobsDir, "output"} {
		os.MkdirAll(d, 0755)
	}

	jobPtr := flag.String("job", "", "Путь к YAML-заданию (по умолчанию: самый свежий файл в input/jobs/)")
	outputPtr := flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	cacheDirPtr := flag.String("cache-dir", "", "Каталог кэша изображений для ссылок cache:<id>")
	workersPtr := flag.Int("workers", 0, "Потоки (0 - по числу ядер и свободной памяти)")
	fpsPtr := flag.Int("fps", 30, "FPS")
	widthPtr := flag.Int("width", 1080, "Ширина")
	heightPtr := flag.Int("height", 1350, "Высота")
	presetPtr := flag.String("preset", "", "Пресет формата: 4:5 (вебтун), 9:16 (Shorts/TikTok), 16:9")
	qualityPtr := flag.Int("quality", 18, "Качество видео (CRF x264, 0-51)")
	timeoutPtr := flag.Duration("timeout", 300*time.Second, "Максимальное время работы ffmpeg")
	regionPtr := flag.String("s3-region", "", "Регион AWS для ссылок s3:// (по умолчанию AWS_REGION)")
	probePtr := flag.Bool("probe", false, "Проверить длительность готового видео через ffprobe")

	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	jobPath := *jobPtr
	if jobPath == "" {
		latest, err := job.FindLatestJob(job.JobsDir)
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите задание в %s/", err, job.JobsDir)
		}
		jobPath = latest
		log.Printf("[*] Выбрано задание: %s", jobPath)
	}

	j, err := job.ReadJob(jobPath)
	if err != nil {
		log.Fatalf("[-] Ошибка чтения задания: %v", err)
	}

	// Приоритет: флаги > окружение > задание > значения по умолчанию
	cfg := *j.Config
	cfg.ApplyEnv()
	if err := cfg.ApplyPreset(*presetPtr); err != nil {
		log.Fatalf("[-] %v", err)
	}
	if set["width"] {
		cfg.Width = *widthPtr
	}
	if set["height"] {
		cfg.Height = *heightPtr
	}
	if set["fps"] {
		cfg.FPS = *fpsPtr
	}
	if set["quality"] {
		cfg.Quality = *qualityPtr
	}
	if set["timeout"] {
		cfg.Timeout = *timeoutPtr
	}
	if *cacheDirPtr != "" {
		cfg.CacheDir = *cacheDirPtr
	}
	if *outputPtr != "" {
		j.Output = *outputPtr
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Некорректная конфигурация: %v", err)
	}

	workers := cfg.Workers
	if set["workers"] || workers <= 0 {
		workers = *workersPtr
	}
	if workers <= 0 {
		workers = system.DefaultWorkers(cfg.Width, cfg.Height)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.Default()
	opts := []source.Option{
		source.WithDPI(cfg.DPI),
		source.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		source.WithLogger(logger),
	}
	region := *regionPtr
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region != "" {
		client, err := source.NewS3Client(ctx, region)
		if err != nil {
			log.Fatalf("[-] Ошибка инициализации S3: %v", err)
		}
		opts = append(opts, source.WithS3(client))
		log.Printf("[*] S3 включен, регион %s", region)
	}

	// Инициализируем зависимости
	res := source.NewResolver(cfg.CacheDir, opts...)
	bubbles, err := bubble.New(cfg, logger)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации реплик: %v", err)
	}
	enc := video.NewFFmpegEncoder(cfg, logger)

	project := engine.NewVideoProject(cfg, res, bubbles, enc, workers, logger)
	path, err := project.Build(ctx, j)
	if err != nil {
		stop()
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	if *probePtr {
		duration, err := video.ProbeDuration(ctx, "ffprobe", path)
		if err != nil {
			log.Printf("[!] Не удалось получить длительность видео: %v", err)
		} else {
			fmt.Printf("[*] Длительность видео: %.2fs\n", duration)
		}
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", path)
}
