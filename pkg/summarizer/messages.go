package summarizer

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		"Analysis Log":     "分析ログ",
		"Generated":        "生成日時",
		"Run ID":           "実行ID",
		"Trial":            "トライアル",
		"Video":            "動画",
		"Source":           "入力",
		"Re-encoded":       "再エンコード",
		"Resolution":       "解像度",
		"Frame rate":       "フレームレート",
		"Frames":           "フレーム数",
		"Sampling":         "サンプリング",
		"Interval":         "間隔",
		"Stride":           "ストライド",
		"Output directory": "出力ディレクトリ",
		"Frames requested": "要求フレーム数",
		"Frames produced":  "取得フレーム数",
		"Frames written":   "保存フレーム数",
		"Distinct files":   "ファイル数",
		"Stopped early":    "途中終了",
		"Interrupted":      "中断",
		"yes":              "はい",
		"Annotation":       "アノテーション",
		"Detection":        "検出",
		"disabled":         "無効",
		"Overlay mode":     "オーバーレイ",
		"Classes":          "クラス",
		"all":              "すべて",
		"Detections":       "検出数",
		"Conversation":     "会話",
		"Model":            "モデル",
		"Group size":       "グループサイズ",
		"Prompt":           "プロンプト",
		"Group %d":         "グループ %d",
		"Images":           "画像",
		"Follow-up":        "追加質問",
	})
}
