package gateway

import "github.com/abhiramiramadas/minibot/pkg/history"

// chatRequest is the generateContent request body. history.Turn already
// marshals to the provider's content shape (role + text/inline_data parts).
type chatRequest struct {
	Contents []history.Turn `json:"contents"`
}

type chatResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type imageRequest struct {
	SyncMode bool   `json:"sync_mode"`
	Prompt   string `json:"prompt"`
}

type imageResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

type uploadResponse struct {
	URL string `json:"url"`
}

// videoSubmitRequest starts a long-running generation.
type videoSubmitRequest struct {
	Instances []videoInstance `json:"instances"`
}

type videoInstance struct {
	Prompt string `json:"prompt"`
}

// videoSubmitResponse carries the operation handle to poll.
type videoSubmitResponse struct {
	Name string `json:"name"`
}

// videoPollResponse is the long-running operation state. The result URI is
// nested several levels deep when done.
type videoPollResponse struct {
	Done     bool `json:"done"`
	Response struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
