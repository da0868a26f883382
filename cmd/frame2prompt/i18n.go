package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":    "出力先",
		"Sampling":  "サンプリング",
		"Detection": "検出",
		"Chat":      "チャット",
		"Debug":     "デバッグ",
		"Logging":   "ログ",

		// Commands
		"Extract video frames and analyze them with a vision model": "動画からフレームを抽出し、画像モデルで分析します",
		"Extract frames from a video at a fixed interval":           "一定間隔で動画からフレームを抽出",
		"Extract frames and describe them with a chat model":        "フレームを抽出し、チャットモデルで説明を生成",
		"Show version information":                                  "バージョン情報を表示",
		"frame2prompt version %s":                                   "frame2prompt バージョン %s",

		// Flags
		"YAML configuration file":                                 "YAML設定ファイル",
		"Root directory for extracted frames":                     "抽出フレームの保存先ルート",
		"Trial name (default: <video basename>_trial)":            "トライアル名（既定: <動画ファイル名>_trial）",
		"Frame filename prefix":                                   "フレームファイル名の接頭辞",
		"JPEG quality (1-100)":                                    "JPEG品質（1-100）",
		"Seconds between sampled frames":                          "フレームを抽出する間隔（秒）",
		"Path to ffmpeg (falls back to FFMPEG_PATH, then PATH)":   "ffmpegのパス（未指定時はFFMPEG_PATH、次にPATH）",
		"Path to ffprobe (falls back to FFPROBE_PATH, then PATH)": "ffprobeのパス（未指定時はFFPROBE_PATH、次にPATH）",
		"Run the detection model and overlay results":             "検出モデルを実行し結果を重ねて描画",
		"Detection worker executable":                             "検出ワーカーの実行ファイル",
		"Model weights passed to the worker":                      "ワーカーに渡すモデルの重み",
		"Minimum detection confidence":                            "検出の最小信頼度",
		"Overlay mode: boxes, masks or both":                      "描画モード: boxes, masks, both",
		"Class id to keep (repeatable; default all)":              "残すクラスID（複数指定可、既定はすべて）",
		"Keep frames without detections in colour in boxes mode":  "boxesモードで検出のないフレームを暗くしない",
		"Save intermediate results":                               "中間結果を保存",
		"Directory for debug output":                              "デバッグ出力先ディレクトリ",
		"Write run metrics in Prometheus textfile format":         "実行メトリクスをPrometheusテキスト形式で出力",
		"Log level (debug, info, warn, error)":                    "ログレベル（debug, info, warn, error）",
		"Log format (text, json)":                                 "ログ形式（text, json）",
		"Suppress all log output":                                 "すべてのログ出力を抑制",
		"Images per chat message":                                 "1メッセージあたりの画像数",
		"Prompt sent with every image group":                      "各画像グループに送るプロンプト",
		"Final question asked after all groups":                   "全グループの後に尋ねる最終質問",
		"Chat model name":                                         "チャットモデル名",
		"OpenAI-compatible API base URL":                          "OpenAI互換APIのベースURL",
		"Minimum seconds between chat requests":                   "チャットリクエストの最小間隔（秒）",
		"Analyze frames already in the output directory":          "出力ディレクトリの既存フレームを分析",

		// Runtime
		"Extracting frames":        "フレーム抽出中",
		"a video path is required": "動画のパスが必要です",
	})
}
