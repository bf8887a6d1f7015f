package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/media-grab-go/internal/domain"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "media-grab",
		Short: "Media-Grab CLI - acquire and post-process media from URLs",
		Long:  `A command-line interface for the media-grab acquisition server.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(audioCmd)
	rootCmd.AddCommand(resolveCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Acquire media from a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]string{"url": args[0]}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/media", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Media          map[string]interface{} `json:"media"`
			AlreadyPresent bool                   `json:"already_present"`
		}
		json.Unmarshal(body, &result)

		if result.AlreadyPresent {
			fmt.Println("Already acquired, returning existing artifact.")
		} else {
			fmt.Println("Media acquired successfully!")
		}
		fmt.Printf("ID:         %v\n", result.Media["id"])
		fmt.Printf("Identifier: %v\n", result.Media["identifier"])
		fmt.Printf("File:       %v\n", result.Media["file_path"])
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get media item details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/media/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var item map[string]interface{}
		json.Unmarshal(body, &item)

		fmt.Printf("Media Item:\n")
		fmt.Printf("  ID:         %v\n", item["id"])
		fmt.Printf("  Identifier: %v\n", item["identifier"])
		fmt.Printf("  URL:        %v\n", item["url"])
		fmt.Printf("  Status:     %v\n", item["status"])
		fmt.Printf("  Downloads:  %v\n", item["download_count"])
		if item["file_path"] != nil {
			fmt.Printf("  File:       %v\n", item["file_path"])
		}
		if item["duration_seconds"] != nil {
			fmt.Printf("  Duration:   %vs\n", item["duration_seconds"])
		}
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all media items",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		url := serverURL + "/api/v1/media"
		if status != "" {
			url += "?status=" + status
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var items []map[string]interface{}
		json.Unmarshal(body, &items)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTIFIER\tURL\tSTATUS\tDOWNLOADS\tCREATED")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
				item["identifier"],
				truncate(stringOf(item["url"]), 40),
				item["status"],
				item["download_count"],
				item["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show acquisition statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/media/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Acquisition Statistics:")
		fmt.Printf("  Total:      %v\n", stats["total"])
		fmt.Printf("  Queued:     %v\n", stats["queued"])
		fmt.Printf("  Processing: %v\n", stats["processing"])
		fmt.Printf("  Completed:  %v\n", stats["completed"])
		fmt.Printf("  Failed:     %v\n", stats["failed"])
	},
}

var clipCmd = &cobra.Command{
	Use:   "clip [id]",
	Short: "Cut a time range from an acquired media item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		container, _ := cmd.Flags().GetString("container")

		payload := map[string]string{
			"start":     start,
			"end":       end,
			"container": container,
		}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/media/"+args[0]+"/clip",
			"application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Clip created: %v\n", result["file_path"])
	},
}

var audioCmd = &cobra.Command{
	Use:   "audio [id]",
	Short: "Extract audio from an acquired media item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		payload := map[string]string{}
		if start != "" {
			payload["start"] = start
		}
		if end != "" {
			payload["end"] = end
		}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/media/"+args[0]+"/audio",
			"application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Audio extracted: %v\n", result["file_path"])
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Resolve a URL to its media identifier (no server round-trip)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		identifier, err := domain.ResolveIdentifier(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(identifier)
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	clipCmd.Flags().String("start", "", "Start timestamp (HH:MM:SS or MM:SS)")
	clipCmd.Flags().String("end", "", "End timestamp (HH:MM:SS or MM:SS)")
	clipCmd.Flags().String("container", "mp4", "Output container (mp4, mkv, webm)")
	clipCmd.MarkFlagRequired("start")
	clipCmd.MarkFlagRequired("end")
	audioCmd.Flags().String("start", "", "Optional start timestamp")
	audioCmd.Flags().String("end", "", "Optional end timestamp")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func stringOf(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
