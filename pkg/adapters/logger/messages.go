package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Orchestration level messages (info)
		"Starting pipeline":                        "パイプラインを開始します",
		"Pipeline completed successfully":          "パイプラインが正常に完了しました",
		"Pipeline interrupted":                     "パイプラインが中断されました",
		"Interrupted, shutting down...":            "中断されました。シャットダウン中...",
		"Interrupted before any frame was written": "フレームを保存する前に中断されました",
		"Interrupted during analysis":              "分析中に中断されました",
		"Extracting frames from %s every %s s":     "%s から %s 秒ごとにフレームを抽出します",
		"Video opened: %dx%d, %.2f fps, %d frames": "動画を開きました: %dx%d, %.2f fps, %d フレーム",
		"Saved %d frames to %s":                    "%d フレームを %s に保存しました",
		"No frames were written to %s":             "%s にフレームが保存されませんでした",
		"%d frames overwrote earlier frames with the same timestamp": "%d フレームが同じタイムスタンプのフレームを上書きしました",
		"Analyzing frames in %s":                   "%s のフレームを分析中",
		"Analysis completed: %d groups":            "分析完了: %d グループ",
		"Analysis log saved to %s":                 "分析ログを %s に保存しました",
		"Loading detection model: %s":              "検出モデルを読み込み中: %s",

		// Orchestration level errors
		"Failed to open video: %s":          "動画を開けませんでした: %s",
		"Failed to process frames: %s":      "フレームの処理に失敗しました: %s",
		"Failed to analyze frames: %s":      "フレームの分析に失敗しました: %s",
		"Failed to save debug frame: %s":    "デバッグフレームの保存に失敗しました: %s",
		"Failed to stop detector: %s":       "検出ワーカーの停止に失敗しました: %s",
		"Failed to write metrics: %s":       "メトリクスの書き込みに失敗しました: %s",
		"Failed to write analysis log: %s":  "分析ログの書き込みに失敗しました: %s",

		// Open stage
		"Failed to open video '%s' (%v), attempting re-encoding...":         "動画 '%s' を開けません (%v)。再エンコードを試みます...",
		"Failed to read video metadata for '%s', attempting re-encoding...": "'%s' のメタデータを読めません。再エンコードを試みます...",
		"Re-encoding video to: %s":                                          "動画を再エンコード中: %s",
		"Re-encoding successful":                                            "再エンコードに成功しました",
		"Invalid metadata for %s: %+v":                                      "%s のメタデータが無効です: %+v",
		"Video FPS: %.3f, Total frames: %d, Size: %dx%d":                    "FPS: %.3f, 総フレーム数: %d, サイズ: %dx%d",

		// Sample stage
		"Video FPS: %.2f, Total frames: %d, Saving every %d frames": "FPS: %.2f, 総フレーム数: %d, %d フレームごとに保存",
		"Stopped at frame %d: %v":                                   "フレーム %d で停止しました: %v",
		"Interrupted after %d of %d frames":                         "%d / %d フレームで中断されました",

		// Annotate and composite stages
		"Frame %d: %d detections in %s":                    "フレーム %d: %d 件検出 (%s)",
		"Frame %d: kept %d of %d detections (darkened=%v)": "フレーム %d: %d / %d 件を採用 (暗転=%v)",
		"Failed to save debug detections: %v":              "デバッグ用検出結果の保存に失敗しました: %v",

		// Write stage
		"Overwrote %s": "%s を上書きしました",

		// Converse stage
		"Sending %d images in %d groups": "%d 枚の画像を %d グループで送信します",
		"[Group %d] %s":                  "[グループ %d] %s",

		// Video source (ffmpeg component)
		"Opened %s":                                   "%s を開きました",
		"Running %s":                                  "%s を実行中",
		"Container probe failed: %v":                  "コンテナの解析に失敗しました: %v",
		"Container probe: %.3f fps, %d frames, %dx%d": "コンテナ解析: %.3f fps, %d フレーム, %dx%d",
		"ffprobe failed: %v":                          "ffprobe に失敗しました: %v",
		"ffprobe unavailable: %v":                     "ffprobe を利用できません: %v",
		"ffprobe: %.3f fps, %d frames, %dx%d":         "ffprobe: %.3f fps, %d フレーム, %dx%d",

		// Detector worker
		"Detector worker started (pid %d)":      "検出ワーカーを起動しました (pid %d)",
		"Detector worker exited: %v":            "検出ワーカーが終了しました: %v",
		"Detector worker did not exit, killing": "検出ワーカーが終了しないため強制終了します",
		"Detector worker: %s":                   "検出ワーカー: %s",
		"close stdin: %v":                       "標準入力のクローズに失敗: %v",

		// Chat client
		"Chat request failed with status %d, retrying in %s (%d/%d)": "チャットリクエストがステータス %d で失敗しました。%s 後に再試行します (%d/%d)",
	})
}
