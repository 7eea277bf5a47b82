package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"relaychat/internal/chatclient"
)

var (
	username string
	room     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relaychat-client",
		Short: "Terminal client for the relaychat server",
		Run:   runClient,
	}

	cobra.OnInitialize(loadConfig)

	rootCmd.Flags().StringVarP(&username, "username", "u", "", "display name to chat under (required)")
	rootCmd.Flags().StringVarP(&room, "room", "r", "general", "room to join on connect")
	rootCmd.MarkFlagRequired("username")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("server.url", "ws://localhost:5000/ws")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using defaults")
	}
}

func runClient(cmd *cobra.Command, args []string) {
	serverURL := viper.GetString("server.url")

	client := chatclient.NewClient(username, room)
	if err := client.Connect(serverURL); err != nil {
		log.Fatalf("Failed to connect to server: %v", err)
	}

	fmt.Printf("Connected to %s as %s, room #%s\n", serverURL, username, room)
	fmt.Println("Commands: /join <room>, /older, /pm <user> <message>, /quit; anything else is sent to the room.")
	handleStdin(client)
}

// handleStdin reads terminal input and drives the client until /quit.
func handleStdin(client *chatclient.Client) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("> ")

	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			fmt.Print("> ")
			continue
		}

		switch {
		case input == "/quit":
			client.Close()
			return

		case input == "/older":
			client.LoadOlder()

		case strings.HasPrefix(input, "/join "):
			target := strings.TrimSpace(strings.TrimPrefix(input, "/join "))
			if target == "" {
				fmt.Println("[ERROR] Usage: /join <room>")
			} else {
				client.SwitchRoom(target)
			}

		case strings.HasPrefix(input, "/pm "):
			parts := strings.SplitN(input, " ", 3)
			if len(parts) < 3 {
				fmt.Println("[ERROR] Usage: /pm <user> <message>")
			} else {
				client.SendPrivate(parts[1], parts[2])
				fmt.Printf("[Me -> %s]: %s\n", parts[1], parts[2])
			}

		case strings.HasPrefix(input, "/"):
			fmt.Println("[ERROR] Unknown command")

		default:
			client.Send(input, "")
		}
		fmt.Print("> ")
	}
}
