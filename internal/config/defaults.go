package config

func column(field, header, format string) map[string]interface{} {
	c := map[string]interface{}{"field": field, "header": header}
	if format != "" {
		c["format"] = format
	}
	return c
}

func defaultSort() map[string]interface{} {
	return map[string]interface{}{"field": "timestamp", "desc": true}
}

// defaults mirrors the three MongoDB-backed grids and the dataset viewer the
// dashboard has always shipped with.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"app": map[string]interface{}{
			"addr":         ":5000",
			"gin_mode":     "release",
			"cors_origins": []interface{}{"*"},
		},
		"log": map[string]interface{}{
			"level": "info",
		},
		"store": map[string]interface{}{
			"driver":          "mongo",
			"uri":             "mongodb://localhost:27017",
			"connect_timeout": "10s",
		},
		"files": map[string]interface{}{
			"backend": "local",
			"root":    ".",
			"use_ssl": false,
		},
		"query": map[string]interface{}{
			"max_page_size": 1000,
		},
		"client": map[string]interface{}{
			"base_url": "http://localhost:5000",
			"timeout":  "15s",
		},
		"views": map[string]interface{}{
			"data": map[string]interface{}{
				"title":         "Corpus Manager",
				"kind":          KindStore,
				"database":      "CorpusData",
				"collection":    "CorpusManager",
				"default_sort":  defaultSort(),
				"search_fields": []interface{}{"name", "type", "lang", "stat", "message"},
				"columns": []interface{}{
					column("name", "APK Name", ""),
					column("type", "Tipo", ""),
					column("lang", "Language", ""),
					column("stat", "Status", ""),
					column("timestamp", "Timestamp", "timestamp"),
				},
			},
			"dataDeep": map[string]interface{}{
				"title":         "Deep Mountain",
				"kind":          KindStore,
				"database":      "DeepMountain",
				"collection":    "Results",
				"default_sort":  defaultSort(),
				"search_fields": []interface{}{"algorithm", "corpus", "user"},
				"columns": []interface{}{
					column("algorithm", "Algoritmo", ""),
					column("corpus", "Corpus", ""),
					column("user", "User", ""),
					column("result.accuracy", "Accuracy", "percent"),
					column("timestamp", "Timestamp", "timestamp"),
				},
			},
			"corpusView": map[string]interface{}{
				"title":         "Corpus",
				"kind":          KindStore,
				"database":      "CorpusData",
				"collection":    "CorpusProc",
				"default_sort":  defaultSort(),
				"search_fields": []interface{}{"appName"},
				"columns": []interface{}{
					column("appName", "APK", ""),
					column("ppen", "PP Eng", ""),
					column("ppes", "PP Esp", ""),
					column("tosen", "TOS Eng", ""),
					column("toses", "TOS Esp", ""),
					column("APPCorp.stat", "APPCorp", ""),
					column("MPP270.stat", "MPP270", ""),
					column("NLLP2021.stat", "NLLP2021", ""),
					column("gdpr.stat", "GDPR", ""),
					column("timestamp", "Timestamp", "timestamp"),
				},
			},
			"datasetJson": map[string]interface{}{
				"title":         "Dataset",
				"kind":          KindDataset,
				"default_sort":  map[string]interface{}{"field": "category", "desc": false},
				"search_fields": []interface{}{"category", "text"},
				"columns": []interface{}{
					column("category", "Category", ""),
					column("text", "Text", ""),
				},
			},
		},
	}
}
