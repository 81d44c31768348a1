package ui

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle         = "app_title"
	KeyDownload         = "download"
	KeyStop             = "stop"
	KeyReveal           = "reveal"
	KeyClose            = "close"
	KeySettings         = "settings"
	KeyFile             = "file"
	KeyLanguage         = "language"
	KeyOutputFolder     = "output_folder"
	KeyMaxParallel      = "max_parallel"
	KeyQualityPreset    = "quality_preset"
	KeyAutoReveal       = "auto_reveal"
	KeySave             = "save"
	KeyCancel           = "cancel"
	KeyBrowse           = "browse"
	KeyEnterURL         = "enter_url"
	KeySettingsSaved    = "settings_saved"
	KeyRunCompleted     = "run_completed"
	KeyRunFailed        = "run_failed"
	KeySavedTo          = "saved_to"
	KeyCleanupWarnings  = "cleanup_warnings"
	KeyInvalidURL       = "invalid_url"
	KeyPleaseEnterURL   = "please_enter_url"
	KeyAlreadyInQueue   = "already_in_queue"
	KeyParsingPlaylist  = "parsing_playlist"
	KeyPlaylistQueued   = "playlist_queued"
	KeyErrorOpeningFile = "error_opening_file"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: "en",
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language
func (l *Localization) SetLanguage(lang string) {
	if lang == "system" {
		lang = "en"
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts["en"]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

func (l *Localization) initializeTexts() {
	l.texts["en"] = map[string]string{
		KeyAppTitle:         "YT Merger",
		KeyDownload:         "Download",
		KeyStop:             "Stop",
		KeyReveal:           "Show in folder",
		KeyClose:            "Close",
		KeySettings:         "Settings",
		KeyFile:             "File",
		KeyLanguage:         "Language",
		KeyOutputFolder:     "Output folder",
		KeyMaxParallel:      "Max parallel downloads",
		KeyQualityPreset:    "Video quality",
		KeyAutoReveal:       "Show file when done",
		KeySave:             "Save",
		KeyCancel:           "Cancel",
		KeyBrowse:           "Browse",
		KeyEnterURL:         "Enter YouTube URL (https://youtube.com/watch?v=...)",
		KeySettingsSaved:    "Settings saved. Quality and parallel limit apply after restart.",
		KeyRunCompleted:     "Download completed",
		KeyRunFailed:        "Download failed",
		KeySavedTo:          "Saved to",
		KeyCleanupWarnings:  "Some temporary files could not be deleted",
		KeyInvalidURL:       "Invalid URL",
		KeyPleaseEnterURL:   "Please enter a URL",
		KeyAlreadyInQueue:   "Already in queue",
		KeyParsingPlaylist:  "Reading playlist...",
		KeyPlaylistQueued:   "Playlist videos queued",
		KeyErrorOpeningFile: "Error opening file",
	}

	l.texts["ru"] = map[string]string{
		KeyAppTitle:         "YT Merger",
		KeyDownload:         "Скачать",
		KeyStop:             "Стоп",
		KeyReveal:           "Показать в папке",
		KeyClose:            "Закрыть",
		KeySettings:         "Настройки",
		KeyFile:             "Файл",
		KeyLanguage:         "Язык",
		KeyOutputFolder:     "Папка сохранения",
		KeyMaxParallel:      "Макс. параллельных загрузок",
		KeyQualityPreset:    "Качество видео",
		KeyAutoReveal:       "Показывать файл по завершении",
		KeySave:             "Сохранить",
		KeyCancel:           "Отмена",
		KeyBrowse:           "Обзор",
		KeyEnterURL:         "Введите URL YouTube (https://youtube.com/watch?v=...)",
		KeySettingsSaved:    "Настройки сохранены. Качество и лимит загрузок применятся после перезапуска.",
		KeyRunCompleted:     "Загрузка завершена",
		KeyRunFailed:        "Ошибка загрузки",
		KeySavedTo:          "Сохранено в",
		KeyCleanupWarnings:  "Не удалось удалить некоторые временные файлы",
		KeyInvalidURL:       "Неверный URL",
		KeyPleaseEnterURL:   "Пожалуйста, введите URL",
		KeyAlreadyInQueue:   "Уже в очереди",
		KeyParsingPlaylist:  "Чтение плейлиста...",
		KeyPlaylistQueued:   "Видео из плейлиста добавлены",
		KeyErrorOpeningFile: "Ошибка открытия файла",
	}
}
