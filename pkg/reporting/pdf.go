/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pdf.go
Description: PDF rendering of the HTML report through a headless Chrome session.
*/

package reporting

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer turns an HTML document into PDF bytes
type Renderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// ChromeRenderer prints HTML to PDF with headless Chrome
// Requires a Chrome or Chromium binary on PATH
type ChromeRenderer struct {
	timeout time.Duration
	options []chromedp.ExecAllocatorOption
}

// NewChromeRenderer creates a renderer. A zero timeout means no limit beyond ctx.
func NewChromeRenderer(timeout time.Duration, opts ...chromedp.ExecAllocatorOption) *ChromeRenderer {
	return &ChromeRenderer{
		timeout: timeout,
		options: append(chromedp.DefaultExecAllocatorOptions[:], opts...),
	}
}

// RenderPDF loads the document into a blank page and prints it with backgrounds
func (c *ChromeRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.options...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
